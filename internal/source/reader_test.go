package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ============================================================================
// CleanCell / header index
// ============================================================================

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Widget  ", "Widget"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{" Product ", "PRODUCT_QUANTITY", "", "product"})

	if idx["product"] != 0 {
		t.Errorf("product index = %d, want 0 (first occurrence wins)", idx["product"])
	}
	if idx["product_quantity"] != 1 {
		t.Errorf("product_quantity index = %d, want 1", idx["product_quantity"])
	}
	if _, ok := idx[""]; ok {
		t.Error("blank header should not be indexed")
	}
}

func TestTable_MissingAndGet(t *testing.T) {
	tbl := NewTable("a.csv",
		[]string{"product", "origin_warehouse"},
		[][]string{{" Widget ", "W1"}, {"", ""}, {"Gadget"}},
		nil,
	)

	if got := tbl.Missing("product", "destination_store", "origin_warehouse"); len(got) != 1 || got[0] != "destination_store" {
		t.Errorf("Missing() = %v, want [destination_store]", got)
	}

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (blank row dropped)", tbl.Len())
	}

	first := tbl.Rows[0]
	if first.Get("PRODUCT") != "Widget" {
		t.Errorf("Get(PRODUCT) = %q, want Widget", first.Get("PRODUCT"))
	}
	if first.Line != 2 {
		t.Errorf("Line = %d, want 2", first.Line)
	}

	short := tbl.Rows[1]
	v, ok := short.Lookup("origin_warehouse")
	if !ok || v != "" {
		t.Errorf("Lookup on short row = (%q, %v), want (\"\", true)", v, ok)
	}
	if _, ok := short.Lookup("nope"); ok {
		t.Error("Lookup of absent column should report false")
	}
	if short.Line != 4 {
		t.Errorf("Line = %d, want 4", short.Line)
	}
}

func TestTable_Columns(t *testing.T) {
	tbl := NewTable("b.csv", []string{"Product", "", "shipment_identifier", "product"}, [][]string{{"a", "b", "c", "d"}}, nil)

	got := tbl.Columns()
	want := []string{"product", "shipment_identifier"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

// ============================================================================
// ReadCSV
// ============================================================================

func TestReadCSV_Basic(t *testing.T) {
	data := "\n\nproduct,product_quantity\nWidget,5\n\n\"Gadget, large\",2\n"

	tbl, err := ReadCSV("a.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if tbl.Rows[1].Get("product") != "Gadget, large" {
		t.Errorf("quoted cell = %q", tbl.Rows[1].Get("product"))
	}
	if tbl.Rows[0].Line != 4 {
		t.Errorf("first data line = %d, want 4", tbl.Rows[0].Line)
	}
	if tbl.Rows[1].Line != 6 {
		t.Errorf("second data line = %d, want 6", tbl.Rows[1].Line)
	}
}

func TestReadCSV_ValuesKeptAsRead(t *testing.T) {
	data := "=\"product\",'product_quantity',origin_warehouse,destination_store\n" +
		"Kids',3,=W1,'S1'\n" +
		"Kids,4,W1,S1\n" +
		"\"\"\"Quoted\"\"\", 2 ,=\"W2\", S2 \n"

	tbl, err := ReadCSV("a.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !tbl.Has("product") || !tbl.Has("product_quantity") {
		t.Fatalf("header cleanup failed: %v", tbl.Header)
	}

	tests := []struct {
		row  int
		col  string
		want string
	}{
		{0, "product", "Kids'"},
		{0, "origin_warehouse", "=W1"},
		{0, "destination_store", "'S1'"},
		{1, "product", "Kids"},
		{2, "product", `"Quoted"`},
		{2, "product_quantity", "2"},
		{2, "origin_warehouse", `="W2"`},
		{2, "destination_store", "S2"},
	}
	for _, tt := range tests {
		if got := tbl.Rows[tt.row].Get(tt.col); got != tt.want {
			t.Errorf("row %d Get(%q) = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestReadCSV_RaggedRows(t *testing.T) {
	data := "product,shipment_identifier\nWidget\nGadget,X1,extra\n"

	tbl, err := ReadCSV("b.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if tbl.Rows[0].Get("shipment_identifier") != "" {
		t.Error("short row should yield empty value")
	}
	if tbl.Rows[1].Get("shipment_identifier") != "X1" {
		t.Error("long row should still resolve known columns")
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	_, err := ReadCSV("empty.csv", strings.NewReader("\n , \n"))
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("ReadCSV() error = %v, want ErrNoHeader", err)
	}
}

func TestReadCSV_Encodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"utf8", []byte("product\nCafé\n")},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("product\nCafé\n")...)},
		{"windows-1252", []byte("product\nCaf\xe9\n")},
		{"utf16le bom", utf16le("product\nCafé\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadCSV(tt.name, bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			if !tbl.Has("product") {
				t.Fatalf("header not recognised: %q", tbl.Header)
			}
			if got := tbl.Rows[0].Get("product"); got != "Café" {
				t.Errorf("product = %q, want %q", got, "Café")
			}
		})
	}
}

func utf16le(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

// ============================================================================
// ReadXLSX / Open
// ============================================================================

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := workbook(t,
		[]any{"product", "product_quantity", "origin_warehouse", "destination_store"},
		[]any{"Widget", 5, "W1", "S1"},
	)

	tbl, err := ReadXLSX("a.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	row := tbl.Rows[0]
	if row.Get("product_quantity") != "5" {
		t.Errorf("product_quantity = %q, want 5", row.Get("product_quantity"))
	}
	if row.Line != 2 {
		t.Errorf("Line = %d, want 2", row.Line)
	}
}

func TestOpen_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(csvPath, []byte("product\nWidget\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	xlsxPath := filepath.Join(dir, "a.xlsx")
	if err := os.WriteFile(xlsxPath, workbook(t, []any{"product"}, []any{"Widget"}), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{csvPath, xlsxPath} {
		tbl, err := Open(p)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", p, err)
		}
		if tbl.Name != p {
			t.Errorf("Name = %q, want %q", tbl.Name, p)
		}
		if tbl.Rows[0].Get("product") != "Widget" {
			t.Errorf("%s: product = %q", p, tbl.Rows[0].Get("product"))
		}
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open() error = %v, want os.ErrNotExist", err)
	}
}
