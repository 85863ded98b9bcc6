package exporter

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/ryosukesatoh/daily-brief/internal/report"
)

// MIMEType is the content type of exported documents.
const MIMEType = "application/pdf"

const (
	bottomMargin = 15.0
	lineHeight   = 10.0
	fontFamily   = "DejaVu"
	fontSize     = 12.0
)

// Summaries are arbitrary UTF-8, so a TrueType font is embedded instead of
// a cp1252 core font.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularFont []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldFont []byte
)

// ErrEmptyReport is returned when a report has no entries to render.
var ErrEmptyReport = errors.New("report has no entries")

// ExportError reports a failure to render a document.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporter: %v", e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// PDFExporter renders reports as single-column A4 documents.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Export renders r and returns a reader positioned at the start of the document.
// Equal reports always produce identical bytes.
func (e *PDFExporter) Export(r *report.Report) (*bytes.Reader, error) {
	if r == nil || r.Empty() {
		return nil, &ExportError{Err: ErrEmptyReport}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.Date)
	pdf.SetModificationDate(r.Date)
	pdf.SetTitle(r.Title(), true)

	pdf.AddUTF8FontFromBytes(fontFamily, "", regularFont)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", boldFont)

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", fontSize)
	pdf.MultiCell(0, lineHeight, r.Title(), "", "C", false)
	pdf.Ln(lineHeight / 2)

	if r.Single() {
		pdf.MultiCell(0, lineHeight, r.Entries[0].Summary.Text, "", "L", false)
	} else {
		for _, entry := range r.Entries {
			pdf.SetFont(fontFamily, "B", fontSize)
			pdf.MultiCell(0, lineHeight, entry.Topic, "", "L", false)
			pdf.SetFont(fontFamily, "", fontSize)
			pdf.MultiCell(0, lineHeight, entry.Summary.Text, "", "L", false)
			pdf.Ln(lineHeight / 2)
		}
	}

	if pdf.Err() {
		return nil, &ExportError{Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &ExportError{Err: err}
	}
	return bytes.NewReader(buf.Bytes()), nil
}
