package report

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"
)

var (
	ErrExportFailed   = errors.New("export failed")
	ErrPDFUnavailable = errors.New("pdf export unavailable")
)

const (
	DocumentTitle = "奇門遁甲．軍師策論"
	ReportHeading = "軍師策論．時空推演"
	Motto         = "\"知命不懼，日新其德。策論僅供參考，未來在您掌中。\""

	localTimeLayout = "2006/1/2 15:04:05"
)

// Filename follows Consult_Report_YYYY-MM-DD.<ext>.
func Filename(now time.Time, ext string) string {
	return fmt.Sprintf("Consult_Report_%s.%s", now.UTC().Format("2006-01-02"), ext)
}

const documentTmpl = `<!DOCTYPE html>
<html lang="zh-Hant">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <link href="https://fonts.googleapis.com/css2?family=Noto+Serif+TC:wght@400;700&display=swap" rel="stylesheet">
    <style>
        body { font-family: 'Noto Serif TC', serif; background-color: #fdfbf7; color: #1a202c; padding: 40px; max-width: 800px; margin: 0 auto; line-height: 1.8; }
        h1 { text-align: center; color: #854d0e; border-bottom: 2px solid #d4af37; padding-bottom: 20px; }
        h3 { color: #854d0e; border-bottom: 1px solid #cbd5e1; margin-top: 30px; font-size: 1.25rem; }
        h3.ex-first { margin-top: 0; }
        ul.ex-list { margin: 0; padding-left: 1.5rem; }
        li.ex-item::marker { color: #b45309; }
        p.ex-spacer { height: 0.5rem; margin: 0; }
        strong { color: #b45309; }
        .ex-avoid-break { page-break-inside: avoid; break-inside: avoid-page; }
        .footer { margin-top: 60px; text-align: center; color: #64748b; border-top: 1px solid #e2e8f0; padding-top: 20px; font-size: 0.875rem; }
    </style>
</head>
<body>
    <h1>{{.Heading}}</h1>
    {{.Content}}
    <div class="footer">
        <p>{{.Motto}}</p>
        <p>{{.Generated}}</p>
    </div>
</body>
</html>
`

var document = template.Must(template.New("report").Parse(documentTmpl))

// ExportHTML writes a standalone report document.
func ExportHTML(w io.Writer, content string, now time.Time) error {
	body, err := RenderText(content, Export)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	err = document.Execute(w, map[string]any{
		"Title":     DocumentTitle,
		"Heading":   ReportHeading,
		"Content":   template.HTML(body),
		"Motto":     Motto,
		"Generated": now.Local().Format(localTimeLayout),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
