package producer

import (
	"time"

	"finreports/internal/model"
)

// Field is one labelled value in a rendered document.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Document is the format-independent content of an artifact.
type Document struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     []Field   `json:"summary"`
	Parameters  []Field   `json:"parameters"`
}

func NewDocument(report model.Report, params []model.ReportParameter, at time.Time) Document {
	doc := Document{
		Title:       report.Name,
		Description: report.Description,
		GeneratedAt: at,
		Summary: []Field{
			{Label: "Report ID", Value: report.ID.String()},
			{Label: "Type", Value: string(report.Type)},
			{Label: "Period", Value: period(report.StartDate, report.EndDate)},
			{Label: "Total Amount", Value: report.TotalAmount.StringFixed(2) + " " + report.CurrencyCode},
		},
	}
	if report.ClientID != nil {
		doc.Summary = append(doc.Summary, Field{Label: "Client", Value: *report.ClientID})
	}
	if report.ProjectID != nil {
		doc.Summary = append(doc.Summary, Field{Label: "Project", Value: *report.ProjectID})
	}
	doc.Summary = append(doc.Summary, Field{Label: "Generated At", Value: at.Format(time.RFC3339)})

	for _, p := range params {
		label := p.DisplayName
		if label == "" {
			label = p.Name
		}
		doc.Parameters = append(doc.Parameters, Field{Label: label, Value: p.Value})
	}
	return doc
}

func period(start, end *time.Time) string {
	const layout = "2006-01-02"
	switch {
	case start != nil && end != nil:
		return start.Format(layout) + " to " + end.Format(layout)
	case start != nil:
		return "from " + start.Format(layout)
	case end != nil:
		return "until " + end.Format(layout)
	default:
		return "all time"
	}
}
