package population

import (
	"github.com/nao1215/mkattack/internal/scheme"
)

// Forward computes the match-keys a data holder would publish for t: one
// column per scheme (named after the scheme's target column) and one digest
// per row. A row missing every field of a scheme still gets the digest of
// the empty string, as the data holder's own hashing would.
func Forward(reg *scheme.Registry, t *Table) *Table {
	schemes := reg.All()
	columns := make([]string, len(schemes))
	for i, s := range schemes {
		columns[i] = s.Column()
	}

	rows := make([][]string, t.Len())
	for i := range rows {
		src := t.Row(i)
		row := make([]string, len(schemes))
		for j, s := range schemes {
			row[j] = s.Hash(src)
		}
		rows[i] = row
	}
	return NewTable(columns, rows)
}
