package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter writes tables as a landscape A4 document.
type PDFExporter struct {
	fontSize   float64
	uncompress bool
}

// NewPDFExporter returns a PDFExporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{fontSize: 9}
}

// Export draws t as a bordered table, repeating the header on each page.
func (p *PDFExporter) Export(t *Table, w io.Writer) error {
	if len(t.Header) == 0 {
		return errors.New("table has no header")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(!p.uncompress)
	// Core fonts are cp1252; text arrives as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")
	}
	if t.Subtitle != "" {
		pdf.SetFont("Arial", "", p.fontSize)
		pdf.CellFormat(0, 6, tr(t.Subtitle), "", 1, "L", false, 0, "")
	}
	if !t.CreatedAt.IsZero() {
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, "Generated: "+t.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(t.Header))

	header := func() {
		pdf.SetFont("Arial", "B", p.fontSize)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for _, h := range t.Header {
			pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", p.fontSize)
	}

	header()
	for _, r := range t.Rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, v := range r {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(colWidth, 6, tr(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (p *PDFExporter) ContentType() string {
	return "application/pdf"
}

func (p *PDFExporter) Extension() string {
	return ".pdf"
}
