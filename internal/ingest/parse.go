package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

const utf8BOM = "\ufeff"

// Parse reads the first worksheet of an uploaded file, choosing the reader by
// file extension.
func Parse(filename string, r io.Reader) (Sheet, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	default:
		return Sheet{}, fmt.Errorf("%w: %q (use .xlsx or .csv)", ErrUnsupportedFormat, ext)
	}
}

// ParseCSV reads comma separated text. The first record is the header row.
func ParseCSV(r io.Reader) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}
	return shapeSheet(records)
}

// ParseXLSX reads the first worksheet of an Office Open XML workbook.
func ParseXLSX(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return shapeSheet(rows)
}

// shapeSheet splits off the header row, drops blank rows and pads every row
// to the widest one seen.
func shapeSheet(records [][]string) (Sheet, error) {
	for len(records) > 0 && blankRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return Sheet{}, ErrNoHeader
	}

	width := 0
	rows := make([][]string, 0, len(records)-1)
	for _, record := range records {
		if len(record) > width {
			width = len(record)
		}
	}
	for _, record := range records[1:] {
		if blankRow(record) {
			continue
		}
		rows = append(rows, pad(record, width))
	}
	return Sheet{Headers: pad(records[0], width), Rows: rows}, nil
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func pad(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	out := make([]string, width)
	copy(out, record)
	return out
}
