package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Table is a named sheet of string cells, Header becomes the first row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func toRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// Write writes every table as its own sheet of a new xlsx workbook, in order.
func Write(w io.Writer, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, table := range tables {
		if i == 0 {
			err := f.SetSheetName(defaultSheet, table.Name)
			if err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			_, err := f.NewSheet(table.Name)
			if err != nil {
				return fmt.Errorf("create sheet %q: %w", table.Name, err)
			}
		}

		header := toRow(table.Header)
		err := f.SetSheetRow(table.Name, "A1", &header)
		if err != nil {
			return fmt.Errorf("write header of %q: %w", table.Name, err)
		}
		for r, cells := range table.Rows {
			axis, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			row := toRow(cells)
			err = f.SetSheetRow(table.Name, axis, &row)
			if err != nil {
				return fmt.Errorf("write row %d of %q: %w", r+2, table.Name, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
