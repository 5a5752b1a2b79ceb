// Package sheet loads the table of a bulk-edit view from a portal export (.csv, .json or .xlsx).
package sheet

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/admissions/core/bulkedit"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmpty             = errors.New("file empty or missing header")
	ErrMissingIDColumn   = errors.New("id column not found")
	ErrDuplicateID       = errors.New("duplicate row id")
)

// Row is one record of the table; Values holds every column but the id.
type Row struct {
	ID     string
	Values map[string]string
}

// Table is the content of a bulk-edit view as it was when loaded.
type Table struct {
	Columns []string // without the id column, in file order
	Rows    []Row
	index   map[string]int
}

// Load reads the table in `path`. The id column is the first header among `idColumns` found in the file.
func Load(path string, idColumns ...string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	case ".json":
		records, err = readJSON(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return newTable(records, idColumns)
}

func newTable(records [][]string, idColumns []string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmpty
	}
	header := records[0]
	idIdx := -1
	for _, name := range idColumns {
		for i, col := range header {
			if strings.TrimSpace(col) == name {
				idIdx = i
				break
			}
		}
		if idIdx >= 0 {
			break
		}
	}
	if idIdx < 0 {
		return nil, errors.Wrap(ErrMissingIDColumn, strings.Join(idColumns, "|"))
	}

	tbl := &Table{index: make(map[string]int, len(records)-1)}
	for i, col := range header {
		if i != idIdx {
			tbl.Columns = append(tbl.Columns, strings.TrimSpace(col))
		}
	}
	for n, record := range records[1:] {
		id := strings.TrimSpace(cell(record, idIdx))
		if id == "" {
			continue // blank line
		}
		if _, ok := tbl.index[id]; ok {
			return nil, errors.Wrapf(ErrDuplicateID, "row %d: %s", n+2, id)
		}
		row := Row{ID: id, Values: make(map[string]string, len(header)-1)}
		for i, col := range header {
			if i != idIdx {
				row.Values[strings.TrimSpace(col)] = cell(record, i)
			}
		}
		tbl.index[id] = len(tbl.Rows)
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// cell tolerates short records (trailing empty cells are dropped by some exporters).
func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// Row returns the row identified by `id`.
func (t *Table) Row(id string) (Row, bool) {
	i, ok := t.index[id]
	if !ok {
		return Row{}, false
	}
	return t.Rows[i], true
}

// Snapshot captures the baseline of `fields` for every row.
// Fields absent from the file are not captured.
func (t *Table) Snapshot(fields []string) *bulkedit.Snapshot {
	snap := bulkedit.NewSnapshot()
	for _, row := range t.Rows {
		for _, field := range fields {
			if val, ok := row.Values[field]; ok {
				snap.Set(row.ID, field, val)
			}
		}
	}
	return snap
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff") // UTF-8 BOM
	}
	return records, nil
}

// readJSON reads an array of flat objects; the header is the sorted union of their keys.
func readJSON(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// numbers keep their exported text; ids beyond 2^53 would not survive float64
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rows []map[string]interface{}
	if err = dec.Decode(&rows); err != nil && err != io.EOF {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var header []string
	for _, row := range rows {
		for _, key := range sortedKeys(row) {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = jsonString(row[col])
		}
		records = append(records, record)
	}
	return records, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func jsonString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// readXLSX reads the first sheet of the workbook.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}
