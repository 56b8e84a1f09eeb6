// Package dataset reads the recorded spreadsheets. Every sheet has a header
// row and an index in its first column; the remaining cells are numbers.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrColumnNotFound is returned when a table has no column of that name.
var ErrColumnNotFound = errors.New("column not found")

// Workbook is an open spreadsheet file.
type Workbook struct {
	path string
	f    *excelize.File
}

// Open opens an .xlsx workbook.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string { return w.path }

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// First returns the table on the first sheet.
func (w *Workbook) First() (*Table, error) {
	sheets := w.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", w.path)
	}
	return w.Table(sheets[0])
}

// Table reads one sheet.
func (w *Workbook) Table(sheet string) (*Table, error) {
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, w.path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q of %s is empty", sheet, w.path)
	}

	header := rows[0]
	t := &Table{Name: sheet}
	if len(header) > 1 {
		t.Columns = make([]string, len(header)-1)
		for i, h := range header[1:] {
			t.Columns[i] = strings.TrimSpace(h)
		}
	}

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		idx := ""
		if len(row) > 0 {
			idx = row[0]
		}
		cells := make([]float64, len(t.Columns))
		for j := range cells {
			cells[j] = math.NaN()
			if j+1 < len(row) {
				cells[j] = parseCell(row[j+1])
			}
		}
		t.Index = append(t.Index, idx)
		t.rows = append(t.rows, cells)
	}
	return t, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Table is one sheet: named numeric columns and a row index.
type Table struct {
	Name    string
	Columns []string
	Index   []string
	rows    [][]float64
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) columnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: %q: %w", t.Name, name, ErrColumnNotFound)
}

// Column returns a copy of the named column. Blank and non-numeric cells
// are NaN.
func (t *Table) Column(name string) ([]float64, error) {
	j, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Filter returns the rows whose column equals value.
func (t *Table) Filter(column string, value float64) (*Table, error) {
	j, err := t.columnIndex(column)
	if err != nil {
		return nil, err
	}
	out := &Table{Name: t.Name, Columns: t.Columns}
	for i, r := range t.rows {
		if r[j] == value {
			out.Index = append(out.Index, t.Index[i])
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
