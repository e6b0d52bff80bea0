package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDFOptions points at a UTF-8 TrueType font able to render CJK text.
type PDFOptions struct {
	FontPath     string
	BoldFontPath string
}

const (
	pdfFamily   = "report"
	pdfMargin   = 15.0
	pdfBodySize = 11.0
	pdfLineH    = 6.5
	pdfIndent   = 6.0
)

type rgb struct{ r, g, b int }

var (
	colorTitle   = rgb{120, 53, 15}
	colorHeading = rgb{120, 53, 15}
	colorStrong  = rgb{180, 83, 9}
	colorBody    = rgb{0, 0, 0}
	colorMuted   = rgb{156, 163, 175}
	colorRule    = rgb{209, 213, 219}
)

// ExportPDF renders the export variant to an A4 PDF. Nothing is written to w
// unless the whole document was produced.
func ExportPDF(w io.Writer, content string, now time.Time, opts PDFOptions) (err error) {
	if opts.FontPath == "" {
		return fmt.Errorf("%w: no font configured (export.pdf_font)", ErrPDFUnavailable)
	}
	bold := opts.BoldFontPath
	if bold == "" {
		bold = opts.FontPath
	}
	for _, path := range []string{opts.FontPath, bold} {
		if err := checkTrueType(path); err != nil {
			return err
		}
	}

	// fpdf panics on some malformed fonts instead of recording an error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExportFailed, r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddUTF8Font(pdfFamily, "", opts.FontPath)
	pdf.AddUTF8Font(pdfFamily, "B", bold)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: load font: %w", ErrPDFUnavailable, err)
	}
	pdf.AddPage()

	setColor(pdf, colorTitle)
	pdf.SetFont(pdfFamily, "B", 20)
	pdf.CellFormat(0, 12, DocumentTitle, "", 1, "C", false, 0, "")
	rule(pdf)
	pdf.Ln(6)

	headings := 0
	for _, b := range Parse(content) {
		switch b.Kind {
		case KindHeading:
			if headings > 0 {
				pdf.Ln(6)
			}
			headings++
			setColor(pdf, colorHeading)
			pdf.SetFont(pdfFamily, "B", 14)
			pdf.MultiCell(0, 8, b.Text(), "B", "L", false)
			pdf.Ln(2)
		case KindListItem:
			pdf.SetLeftMargin(pdfMargin + pdfIndent)
			pdf.SetX(pdfMargin + 2)
			setColor(pdf, colorStrong)
			pdf.SetFont(pdfFamily, "", pdfBodySize)
			pdf.Write(pdfLineH, "• ")
			writeSpans(pdf, b.Spans)
			pdf.SetLeftMargin(pdfMargin)
			pdf.Ln(pdfLineH + 1)
		case KindSpacer:
			pdf.Ln(2)
		default:
			writeSpans(pdf, b.Spans)
			pdf.Ln(pdfLineH + 3)
		}
	}

	pdf.Ln(12)
	rule(pdf)
	pdf.Ln(4)
	setColor(pdf, colorMuted)
	pdf.SetFont(pdfFamily, "", 8)
	pdf.CellFormat(0, 5, Motto, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, now.Local().Format(localTimeLayout), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// checkTrueType accepts only single TrueType-outline fonts; fpdf cannot read
// collections (.ttc) or CFF-based OpenType.
func checkTrueType(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPDFUnavailable, err)
	}
	defer f.Close()

	var tag [4]byte
	if _, err := io.ReadFull(f, tag[:]); err != nil {
		return fmt.Errorf("%w: read font %s: %w", ErrPDFUnavailable, path, err)
	}
	switch string(tag[:]) {
	case "\x00\x01\x00\x00", "true":
		return nil
	case "ttcf":
		return fmt.Errorf("%w: font collections are not supported: %s", ErrPDFUnavailable, path)
	case "OTTO":
		return fmt.Errorf("%w: CFF-based OpenType fonts are not supported: %s", ErrPDFUnavailable, path)
	default:
		return fmt.Errorf("%w: not a TrueType font: %s", ErrPDFUnavailable, path)
	}
}

func writeSpans(pdf *fpdf.Fpdf, spans []Span) {
	for _, s := range spans {
		if s.Bold {
			setColor(pdf, colorStrong)
			pdf.SetFont(pdfFamily, "B", pdfBodySize)
		} else {
			setColor(pdf, colorBody)
			pdf.SetFont(pdfFamily, "", pdfBodySize)
		}
		pdf.Write(pdfLineH, s.Text)
	}
}

func rule(pdf *fpdf.Fpdf) {
	pageW, _ := pdf.GetPageSize()
	y := pdf.GetY()
	pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	pdf.Line(pdfMargin, y, pageW-pdfMargin, y)
}

func setColor(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}
