package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader is returned for inputs that contain no non-blank row.
var ErrNoHeader = errors.New("no header row")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Open reads the file at path. Files ending in .xlsx or .xlsm are read as
// workbooks (first sheet); anything else is read as CSV.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, f)
	default:
		return ReadCSV(path, f)
	}
}

// ReadCSV parses CSV data from r. The first non-blank record is the header.
// Input may be UTF-8 (with or without BOM), UTF-16 with BOM, or Windows-1252.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		header  []string
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		if header == nil {
			if isEmptyRow(rec) {
				continue
			}
			header = rec
			continue
		}

		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	if header == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}

	return NewTable(name, header, records, lines), nil
}

// ReadXLSX reads the first sheet of a workbook. The first non-blank row is
// the header; Row.Line is the 1-based sheet row.
func ReadXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], name, err)
	}

	headerAt := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}

	records := rows[headerAt+1:]
	lines := make([]int, len(records))
	for i := range records {
		lines[i] = headerAt + i + 2
	}

	return NewTable(name, rows[headerAt], records, lines), nil
}

// decode converts data to UTF-8. A BOM selects the encoding when present;
// otherwise valid UTF-8 is kept and anything else is treated as Windows-1252.
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return out, err
	}
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.Windows1252.NewDecoder().Bytes(data)
}
