package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/mkattack/internal/scheme"
)

// Table is an in-memory rectangular table of string cells.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable builds a table. Column names are normalized, rows shorter than
// the header are padded with empty cells and longer rows are truncated.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, c := range columns {
		name := ColumnName(c, i == 0)
		t.columns[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, r := range rows {
		t.rows = append(t.rows, fit(r, len(columns)))
	}
	t.derive()
	return t
}

// ColumnName normalizes a header cell.
func ColumnName(h string, first bool) string {
	if first {
		h = strings.TrimPrefix(h, "\uFEFF")
	}
	h = strings.TrimSpace(h)
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

func fit(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}

// derive adds first_initial and year_of_birth when they can be computed
// from first_name and dob.
func (t *Table) derive() {
	if t.Has(string(scheme.FirstName)) && !t.Has(string(scheme.FirstInitial)) {
		src := t.index[string(scheme.FirstName)]
		t.addColumn(string(scheme.FirstInitial), func(row []string) string {
			return scheme.First().Apply(scheme.FirstName.Canonical(row[src]))
		})
	}
	if t.Has(string(scheme.DOB)) && !t.Has(string(scheme.YearOfBirth)) {
		src := t.index[string(scheme.DOB)]
		t.addColumn(string(scheme.YearOfBirth), func(row []string) string {
			return scheme.Prefix(4).Apply(scheme.DOB.Canonical(row[src]))
		})
	}
}

func (t *Table) addColumn(name string, compute func(row []string) string) {
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i, row := range t.rows {
		t.rows[i] = append(row, compute(row))
	}
}

// Columns returns the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Value returns the cell at row i in the named column, or "" when the
// column is absent.
func (t *Table) Value(i int, column string) string {
	c, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.rows[i][c]
}

// Column returns all cells of the named column.
func (t *Table) Column(column string) ([]string, error) {
	c, ok := t.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out, nil
}

// Row returns row i as scheme fields. Columns that are not field types are
// ignored.
func (t *Table) Row(i int) scheme.Row {
	row := make(scheme.Row, len(scheme.Fields))
	for _, f := range scheme.Fields {
		if c, ok := t.index[string(f)]; ok {
			row[f] = t.rows[i][c]
		}
	}
	return row
}

// Open reads a table, choosing the format from the file extension.
func Open(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open table: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".parquet":
		return ReadParquetFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadCSV reads a CSV table with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
	return NewTable(header, rows), nil
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return err
	}
	return cw.Error()
}
