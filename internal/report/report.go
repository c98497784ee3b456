package report

import (
	"io"
	"surveylogic/internal/scrapers/portal"
	"surveylogic/internal/survey/sheet"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	ColumnUserID = "queried_user_id"
	ColumnError  = "error"

	SheetResults = "results"
	SheetErrors  = "errors"

	FileName    = "results.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Users tabulates every successful result. The columns are the queried id
// followed by the union of the field keys in the order they were first seen,
// users missing a key get an empty cell.
func Users(results []portal.Result) sheet.Table {
	header := []string{ColumnUserID}
	columns := map[string]int{ColumnUserID: 0}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, f := range r.Record.Fields {
			if _, ok := columns[f.Key]; ok {
				continue
			}
			columns[f.Key] = len(header)
			header = append(header, f.Key)
		}
	}

	var rows [][]string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		row := make([]string, len(header))
		row[0] = r.UserID
		for _, f := range r.Record.Fields {
			row[columns[f.Key]] = f.Value
		}
		rows = append(rows, row)
	}

	return sheet.Table{
		Name:   SheetResults,
		Header: header,
		Rows:   rows,
	}
}

// Failures lists the ids that could not be fetched along with why.
func Failures(results []portal.Result) sheet.Table {
	var rows [][]string
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		rows = append(rows, []string{r.UserID, r.Err.Error()})
	}
	return sheet.Table{
		Name:   SheetErrors,
		Header: []string{ColumnUserID, ColumnError},
		Rows:   rows,
	}
}

// WriteXLSX writes the results and failures sheets as a single workbook.
func WriteXLSX(w io.Writer, results []portal.Result) error {
	return sheet.Write(w, Users(results), Failures(results))
}

// Render prints `t` as a terminal table.
func Render(w io.Writer, t sheet.Table) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetOutputMirror(w)
	tw.SetTitle(t.Name)

	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, cells := range t.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		tw.AppendRow(row)
	}
	tw.Render()
}
