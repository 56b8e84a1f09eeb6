package dataset

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves sheets (name → rows, header first) to a temp file.
func writeWorkbook(t *testing.T, sheets []string, data map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName() error = %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet() error = %v", err)
		}
		for r, row := range data[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow() error = %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return path
}

func TestWorkbook_TableAndColumn(t *testing.T) {
	path := writeWorkbook(t, []string{"cells"}, map[string][][]any{
		"cells": {
			{"", "EPSQ_pC", "IPSQ_pC", "Group"},
			{"c1", -1.5, 2.0, 1},
			{"c2", -2.5, "", 0},
			{"c3", -3.0, "n/a", 1},
		},
	})

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	tbl, err := w.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	if len(tbl.Columns) != 3 || tbl.Columns[0] != "EPSQ_pC" {
		t.Errorf("Columns = %v", tbl.Columns)
	}
	if tbl.Index[2] != "c3" {
		t.Errorf("Index = %v", tbl.Index)
	}

	epsq, err := tbl.Column("EPSQ_pC")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if epsq[0] != -1.5 || epsq[2] != -3.0 {
		t.Errorf("Column(EPSQ_pC) = %v", epsq)
	}

	ipsq, _ := tbl.Column("IPSQ_pC")
	if ipsq[0] != 2 || !math.IsNaN(ipsq[1]) || !math.IsNaN(ipsq[2]) {
		t.Errorf("Column(IPSQ_pC) = %v, want [2 NaN NaN]", ipsq)
	}

	// The returned slice is a copy.
	epsq[0] = 99
	again, _ := tbl.Column("EPSQ_pC")
	if again[0] != -1.5 {
		t.Error("Column() exposed internal storage")
	}
}

func TestTable_MissingColumn(t *testing.T) {
	path := writeWorkbook(t, []string{"s"}, map[string][][]any{
		"s": {{"", "a"}, {"r", 1}},
	})
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()
	tbl, err := w.Table("s")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	if _, err := tbl.Column("b"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Column() error = %v, want ErrColumnNotFound", err)
	}
	if _, err := tbl.Filter("b", 1); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Filter() error = %v, want ErrColumnNotFound", err)
	}
}

func TestTable_Filter(t *testing.T) {
	path := writeWorkbook(t, []string{"s"}, map[string][][]any{
		"s": {
			{"", "x", "Group"},
			{"a", 1, 1},
			{"b", 2, 0},
			{"c", 3, 1},
		},
	})
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()
	tbl, _ := w.Table("s")

	ffi, err := tbl.Filter("Group", 1)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	xs, _ := ffi.Column("x")
	if len(xs) != 2 || xs[0] != 1 || xs[1] != 3 {
		t.Errorf("filtered x = %v, want [1 3]", xs)
	}
	if ffi.Index[1] != "c" {
		t.Errorf("filtered Index = %v", ffi.Index)
	}
}

func TestWorkbook_SheetsInOrder(t *testing.T) {
	path := writeWorkbook(t, []string{"R1", "R2", "R3"}, map[string][][]any{
		"R1": {{"", "Stim#1"}, {"t1", 1.1}},
		"R2": {{"", "Stim#1"}, {"t1", 1.2}},
		"R3": {{"", "Stim#1"}, {"t1", 1.3}},
	})
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	sheets := w.Sheets()
	want := []string{"R1", "R2", "R3"}
	if len(sheets) != len(want) {
		t.Fatalf("Sheets() = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("Sheets()[%d] = %s, want %s", i, sheets[i], want[i])
		}
	}

	tbl, err := w.Table("R2")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	v, _ := tbl.Column("Stim#1")
	if v[0] != 1.2 {
		t.Errorf("R2 Stim#1 = %v, want 1.2", v)
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Error("Open() error = nil, want error")
	}
}

func TestTable_ReadsStoredValuesNotDisplayText(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"", "Amp"},
		{"r1", 1.23456},
		{"r2", 1234.5},
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	// 2 is "0.00", 4 is "#,##0.00".
	for cell, numFmt := range map[string]int{"B2": 2, "B3": 4} {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellStyle("Sheet1", cell, cell, style); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "formatted.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()
	tbl, err := w.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	got, err := tbl.Column("Amp")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	want := []float64{1.23456, 1234.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Column(Amp)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
