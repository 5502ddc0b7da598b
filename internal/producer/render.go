package producer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

func renderPDF(doc Document, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "L", false, 0, "")
	if doc.Description != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, doc.Description, "", "L", false)
	}
	pdf.Ln(4)

	table := func(heading string, fields []Field) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, f := range fields {
			pdf.CellFormat(60, 7, f.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, f.Value, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
	table("Summary", doc.Summary)
	if len(doc.Parameters) > 0 {
		table("Parameters", doc.Parameters)
	}

	return pdf.OutputFileAndClose(path)
}

const (
	summarySheet    = "Summary"
	parametersSheet = "Parameters"
)

func renderExcel(doc Document, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	if err := writeSheet(f, summarySheet, doc.Title, doc.Summary); err != nil {
		return err
	}
	if len(doc.Parameters) > 0 {
		if _, err := f.NewSheet(parametersSheet); err != nil {
			return err
		}
		if err := writeSheet(f, parametersSheet, "Parameter", doc.Parameters); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet, title string, fields []Field) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	for i, field := range fields {
		row := i + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), field.Label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), field.Value); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "B", 30)
}

func renderCSV(doc Document, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	records := [][]string{{"section", "field", "value"}}
	for _, f := range doc.Summary {
		records = append(records, []string{"summary", f.Label, f.Value})
	}
	for _, f := range doc.Parameters {
		records = append(records, []string{"parameter", f.Label, f.Value})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return file.Close()
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<h2>Summary</h2>
<table>
{{range .Summary}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Parameters}}<h2>Parameters</h2>
<table>
{{range .Parameters}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>
`))

func renderHTML(doc Document, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := htmlTemplate.Execute(file, doc); err != nil {
		return err
	}
	return file.Close()
}

func renderJSON(doc Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
