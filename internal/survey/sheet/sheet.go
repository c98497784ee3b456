// Package sheet reads survey structures and id lists out of spreadsheets and
// writes tables back into xlsx workbooks.
package sheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"surveylogic/internal/survey"

	"github.com/antzucaro/matchr"
	"github.com/xuri/excelize/v2"
)

var ErrInputFormat = errors.New("input format")

const (
	ColumnContents = "contents"
	ColumnMark     = "qa_mark"

	byteOrderMark = '\ufeff'
)

type Format int

const (
	XLSX Format = iota
	CSV
)

func (f Format) String() string {
	switch f {
	case XLSX:
		return "xlsx"
	case CSV:
		return "csv"
	}
	return "unknown"
}

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return XLSX, nil
	case ".csv":
		return CSV, nil
	}
	return 0, fmt.Errorf("%w: unsupported file type %q, expected .xlsx or .csv", ErrInputFormat, filepath.Ext(name))
}

func readRecords(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case XLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: open workbook: %w", ErrInputFormat, err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrInputFormat)
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %q: %w", ErrInputFormat, sheets[0], err)
		}
		return rows, nil
	case CSV:
		buffered := bufio.NewReader(r)
		// spreadsheet apps write a byte order mark at the start of utf-8 csv
		first, _, err := buffered.ReadRune()
		if err == nil && first != byteOrderMark {
			err = buffered.UnreadRune()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: read csv: %w", ErrInputFormat, err)
		}
		reader := csv.NewReader(buffered)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", ErrInputFormat, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("%w: unknown format %d", ErrInputFormat, format)
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// columnIndex finds `name` in the header, the error names the closest header
// cell when it is missing.
func columnIndex(header []string, name string) (int, error) {
	for i, cell := range header {
		if normalizeHeader(cell) == name {
			return i, nil
		}
	}

	var closest string
	var similarity float64
	for _, cell := range header {
		s := matchr.JaroWinkler(normalizeHeader(cell), name, false)
		if s > similarity {
			similarity = s
			closest = cell
		}
	}
	if similarity >= 0.7 {
		return 0, fmt.Errorf("%w: missing column %q (found %q, did you mean it?)", ErrInputFormat, name, closest)
	}
	return 0, fmt.Errorf("%w: missing column %q, header is %q", ErrInputFormat, name, header)
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// ReadRows reads the `contents` and `qa_mark` columns of the first sheet.
func ReadRows(r io.Reader, format Format) ([]survey.Row, error) {
	records, err := readRecords(r, format)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInputFormat)
	}

	header := records[0]
	contentsIdx, err := columnIndex(header, ColumnContents)
	if err != nil {
		return nil, err
	}
	markIdx, err := columnIndex(header, ColumnMark)
	if err != nil {
		return nil, err
	}

	rows := make([]survey.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, survey.Row{
			Line: i + 2,
			Text: cell(record, contentsIdx),
			Mark: cell(record, markIdx),
		})
	}
	return rows, nil
}

// ReadFile opens `path` and reads it using the format of its extension.
func ReadFile(path string) ([]survey.Row, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputFormat, err)
	}
	defer f.Close()
	return ReadRows(f, format)
}

// ReadColumn returns the non-blank values of the first column below the header.
func ReadColumn(r io.Reader, format Format) ([]string, error) {
	records, err := readRecords(r, format)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var out []string
	for _, record := range records[1:] {
		value := strings.TrimSpace(cell(record, 0))
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}
