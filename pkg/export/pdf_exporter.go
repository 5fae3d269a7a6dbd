package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Field is a labelled value rendered in a document's summary block.
type Field struct {
	Label string
	Value string
}

// Section is a titled table within a document.
type Section struct {
	Heading string
	Data    Dataset
}

// Document is a multi-section report: a title, a summary block of labelled
// fields, and any number of tabular sections.
type Document struct {
	Title    string
	Subtitle string
	Fields   []Field
	Sections []Section
}

// PDFExporter renders documents into paginated A4 PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the PDF bytes for a document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.Fields) > 0 {
		for _, field := range doc.Fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(45, 7, field.Label, "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 7, field.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		if err := renderSection(pdf, section); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderSection(pdf *gofpdf.Fpdf, section Section) error {
	if len(section.Data.Headers) == 0 {
		return fmt.Errorf("section %q has no headers", section.Heading)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 9, section.Heading, "", 1, "", false, 0, "")

	colWidth := 190.0 / float64(len(section.Data.Headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range section.Data.Headers {
		pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	if len(section.Data.Rows) == 0 {
		pdf.CellFormat(190, 7, "none", "1", 1, "C", false, 0, "")
		pdf.Ln(3)
		return nil
	}
	for _, row := range section.Data.Rows {
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
	return nil
}
