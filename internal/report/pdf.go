package report

import (
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/structrel/calfactor/internal/table"
)

// WritePDF writes a one-page calibration report: the factor tables and the
// design summary.
func WritePDF(path string, d *Data) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	title := d.Title
	if title == "" {
		title = "Partial Safety Factor Calibration"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Target reliability index: %.2f", d.TargetBeta))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	for _, nt := range d.tables() {
		writePDFTable(pdf, nt.name, nt.t)
	}

	if len(d.CaseZ) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Design check")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for i, cs := range d.Cases {
			line := fmt.Sprintf("%s: z = %.4f", cs, d.CaseZ[i])
			if i < len(d.DesignBetas) {
				line += fmt.Sprintf(", beta = %.3f", d.DesignBetas[i])
			}
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
		pdf.Cell(0, 6, fmt.Sprintf("Governing design z = %.4f", d.DesignZ))
		pdf.Ln(10)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

func writePDFTable(pdf *gofpdf.Fpdf, name string, t *table.Table) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, name)
	pdf.Ln(8)

	const colW, rowH = 28.0, 6.0
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colW, rowH, "case", "1", 0, "C", false, 0, "")
	for _, c := range t.Cols() {
		pdf.CellFormat(colW, rowH, c, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(rowH)
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range t.Rows() {
		pdf.CellFormat(colW, rowH, r, "1", 0, "L", false, 0, "")
		for _, c := range t.Cols() {
			pdf.CellFormat(colW, rowH, fmt.Sprintf("%.4f", t.At(r, c)), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(rowH)
	}
	pdf.Ln(4)
}
