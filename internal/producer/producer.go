// Package producer renders report artifacts to the local filesystem.
package producer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finreports/internal/model"
)

// Artifact is a produced file.
type Artifact struct {
	Path string
	Size int64
}

type renderFunc func(doc Document, path string) error

// FileProducer writes one file per generation attempt into Dir.
type FileProducer struct {
	dir       string
	now       func() time.Time
	renderers map[model.ReportFormat]renderFunc
}

func New(dir string) *FileProducer {
	return &FileProducer{
		dir: dir,
		now: time.Now,
		renderers: map[model.ReportFormat]renderFunc{
			model.FormatPDF:   renderPDF,
			model.FormatExcel: renderExcel,
			model.FormatCSV:   renderCSV,
			model.FormatHTML:  renderHTML,
			model.FormatJSON:  renderJSON,
		},
	}
}

// Produce renders the report in its format. The file appears under its final
// name only once it is complete.
func (p *FileProducer) Produce(ctx context.Context, report model.Report, params []model.ReportParameter) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	render, ok := p.renderers[report.Format]
	if !ok {
		return Artifact{}, fmt.Errorf("unsupported report format %q", report.Format)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create storage dir: %w", err)
	}

	now := p.now().UTC()
	name := FileName(report, now)
	final := filepath.Join(p.dir, name)
	tmp := filepath.Join(p.dir, ".tmp-"+name)

	if err := render(NewDocument(report, params, now), tmp); err != nil {
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("render %s: %w", report.Format, err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return Artifact{}, err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	return Artifact{Path: final, Size: info.Size()}, nil
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// maxNameBytes caps the report-name segment so the temporary file name stays
// within the 255 byte limit of common filesystems.
const maxNameBytes = 150

// FileName is <type>_<name>_<yyyyMMdd_HHmmss>_<id prefix>.<ext>, lowercased.
func FileName(report model.Report, at time.Time) string {
	base := fmt.Sprintf("%s_%s_%s_%s",
		strings.ToLower(string(report.Type)),
		nameSegment(report.Name),
		at.Format("20060102_150405"),
		report.ID.String()[:8],
	)
	return base + "." + report.Format.Extension()
}

// nameSegment collapses whitespace runs to "_", strips path separators and
// truncates on a rune boundary.
func nameSegment(name string) string {
	seg := nameReplacer.Replace(strings.ToLower(strings.Join(strings.Fields(name), "_")))
	if len(seg) <= maxNameBytes {
		return seg
	}
	cut := 0
	for i := range seg {
		if i > maxNameBytes {
			break
		}
		cut = i
	}
	return seg[:cut]
}
