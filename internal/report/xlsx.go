package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/structrel/calfactor/internal/table"
)

// WriteXLSX writes one sheet per result table plus a Design sheet with the
// per-case design parameter and achieved reliability.
func WriteXLSX(path string, d *Data) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, nt := range d.tables() {
		if err := addSheet(f, nt.name, first); err != nil {
			return err
		}
		first = false
		if err := writeTableSheet(f, nt.name, nt.t); err != nil {
			return err
		}
	}

	if len(d.CaseZ) > 0 {
		if err := addSheet(f, "Design", first); err != nil {
			return err
		}
		if err := writeDesignSheet(f, d); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// addSheet creates a sheet, renaming the default first sheet on first use.
func addSheet(f *excelize.File, name string, first bool) error {
	if first {
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	_, err := f.NewSheet(name)
	return err
}

func writeTableSheet(f *excelize.File, sheet string, t *table.Table) error {
	setCell := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	if err := setCell(1, 1, "case"); err != nil {
		return err
	}
	for j, c := range t.Cols() {
		if err := setCell(j+2, 1, c); err != nil {
			return err
		}
	}
	for i, r := range t.Rows() {
		if err := setCell(1, i+2, r); err != nil {
			return err
		}
		for j, c := range t.Cols() {
			if err := setCell(j+2, i+2, t.At(r, c)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDesignSheet(f *excelize.File, d *Data) error {
	const sheet = "Design"
	setCell := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"case", "z", "design beta", "target beta"}
	for j, h := range headers {
		if err := setCell(j+1, 1, h); err != nil {
			return err
		}
	}
	for i, cs := range d.Cases {
		if err := setCell(1, i+2, cs); err != nil {
			return err
		}
		if i < len(d.CaseZ) {
			if err := setCell(2, i+2, d.CaseZ[i]); err != nil {
				return err
			}
		}
		if i < len(d.DesignBetas) {
			if err := setCell(3, i+2, d.DesignBetas[i]); err != nil {
				return err
			}
		}
		if err := setCell(4, i+2, d.TargetBeta); err != nil {
			return err
		}
	}
	row := len(d.Cases) + 3
	if err := setCell(1, row, "design z (max)"); err != nil {
		return err
	}
	return setCell(2, row, d.DesignZ)
}
