// Package input ingests uploaded tabular order files (delimited text or
// spreadsheets) into a positional Table and classifies which processing
// pipeline a file belongs to.
//
// Source files carry a title banner in physical row 1; the effective header
// is physical row 2. Header text is inconsistent across exports, so the
// default pipeline addresses columns by fixed offset, never by name.
package input

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Mode identifies which processing pipeline an input file belongs to.
type Mode int

const (
	// ModeStatus is the default status-driven pipeline.
	ModeStatus Mode = iota
	// ModeCollection is the pickup/collection pipeline, selected when the
	// first data column's header is the collection sentinel.
	ModeCollection
)

func (m Mode) String() string {
	switch m {
	case ModeCollection:
		return "collection"
	default:
		return "status"
	}
}

// collectionSentinel is the header keyword that marks a collection sheet.
const collectionSentinel = "ORDEM"

// Fixed column offsets for status-mode sheets. Offsets are part of the
// export contract with the TMS; header text is not.
const (
	ColUnit              = 6
	ColStatus            = 14
	ColStatusDescription = 18
)

// Table is a parsed input file: one header row plus positional data rows.
// Every data row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Normalize trims surrounding whitespace and upper-cases a cell value.
// Group keys and status values must be normalized identically everywhere
// they are compared, including the recipient directory join.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Cell returns the value at (row, col), or "" when col is out of range.
func (t *Table) Cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Column finds a column offset by normalized header name. Only the
// collection pipeline looks columns up by name; the status pipeline uses
// fixed offsets.
func (t *Table) Column(name string) (int, bool) {
	want := Normalize(name)
	for i, h := range t.Header {
		if Normalize(h) == want {
			return i, true
		}
	}
	return 0, false
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Header)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Load parses an uploaded file into a Table. The format is selected by file
// extension: .csv for delimited text, .xlsx/.xlsm for spreadsheets (first
// sheet). Physical row 1 is discarded as a banner, physical row 2 becomes
// the header, and short data rows are padded to header width.
func Load(filename string, data []byte) (*Table, error) {
	raw, err := ReadRows(filename, data)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("%s: missing header row below the title banner", filename)
	}

	header := make([]string, len(raw[1]))
	for i, h := range raw[1] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(raw)-2)
	for _, r := range raw[2:] {
		rows = append(rows, padRow(r, len(header)))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: file contains no data rows", filename)
	}

	return &Table{Header: header, Rows: rows}, nil
}

// ReadRows parses the raw physical rows of a supported file without any
// banner or header interpretation. The recipient directory loader shares
// this entry point.
func ReadRows(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSVRows(data)
	case ".xlsx", ".xlsm":
		return readSheetRows(data)
	case ".xls":
		return nil, fmt.Errorf("%s: legacy xls format is not supported, re-save as xlsx", filename)
	default:
		return nil, fmt.Errorf("%s: unsupported file type", filename)
	}
}

// Classify peeks the first cell of the header row (physical row 2) and
// reports which pipeline the file belongs to. It reads from the in-memory
// bytes, so the subsequent full Load sees an intact input.
func Classify(filename string, data []byte) (Mode, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return classifyCSV(data)
	case ".xlsx", ".xlsm":
		return classifySheet(data)
	default:
		return ModeStatus, fmt.Errorf("%s: unsupported file type", filename)
	}
}

func readCSVRows(data []byte) ([][]string, error) {
	decoded, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := newCSVReader(decoded)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func readSheetRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func classifyCSV(data []byte) (Mode, error) {
	decoded, err := DecodeText(data)
	if err != nil {
		return ModeStatus, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := newCSVReader(decoded)
	if _, err := reader.Read(); err != nil { // banner
		return ModeStatus, fmt.Errorf("failed to read title row: %w", err)
	}
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ModeStatus, errors.New("missing header row below the title banner")
		}
		return ModeStatus, fmt.Errorf("failed to read header row: %w", err)
	}
	return classifyHeader(header), nil
}

func classifySheet(data []byte) (Mode, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return ModeStatus, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ModeStatus, errors.New("spreadsheet has no sheets")
	}

	it, err := f.Rows(sheets[0])
	if err != nil {
		return ModeStatus, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	defer it.Close()

	row := 0
	for it.Next() {
		row++
		if row < 2 {
			continue // banner
		}
		header, err := it.Columns()
		if err != nil {
			return ModeStatus, fmt.Errorf("failed to read header row: %w", err)
		}
		return classifyHeader(header), nil
	}
	return ModeStatus, errors.New("missing header row below the title banner")
}

func classifyHeader(header []string) Mode {
	if len(header) > 0 && Normalize(header[0]) == collectionSentinel {
		return ModeCollection
	}
	return ModeStatus
}

func newCSVReader(decoded []byte) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(decoded))
	// Real-world exports have ragged rows and stray quotes; padding to
	// header width happens after the banner row is discarded.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
