package table

import (
	"fmt"

	"github.com/san-kum/labsim/internal/dynamo"
)

// Encode returns the table contents in its schema layout, restricted to the
// rows accepted by keep (all rows when keep is nil).
//
// Columnar tables encode as map[string]any of typed slices. Record tables
// encode as []map[string]any with OmitDefault fields dropped when they hold
// their default.
func (t *Table) Encode(keep func(i int) bool) any {
	idx := make([]int, 0, t.n)
	for i := 0; i < t.n; i++ {
		if keep == nil || keep(i) {
			idx = append(idx, i)
		}
	}
	if t.schema.Layout == Records {
		return t.encodeRecords(idx)
	}
	return t.encodeColumns(idx)
}

func (t *Table) encodeColumns(idx []int) map[string]any {
	out := make(map[string]any)
	for _, c := range t.Columns() {
		switch c.Kind {
		case Float:
			src, col := t.floats[c.Name], make([]float64, len(idx))
			for j, i := range idx {
				col[j] = src[i]
			}
			out[c.Name] = col
		case Bool:
			src, col := t.bools[c.Name], make([]bool, len(idx))
			for j, i := range idx {
				col[j] = src[i]
			}
			out[c.Name] = col
		default:
			src, col := t.texts[c.Name], make([]string, len(idx))
			for j, i := range idx {
				col[j] = src[i]
			}
			out[c.Name] = col
		}
	}
	return out
}

func (t *Table) encodeRecords(idx []int) []map[string]any {
	out := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		rec := make(map[string]any)
		for _, c := range t.Columns() {
			v := t.value(c, i)
			if c.OmitDefault && isDefault(c, v) {
				continue
			}
			rec[c.Name] = v
		}
		out = append(out, rec)
	}
	return out
}

func isDefault(c Column, v any) bool {
	return v == c.zero()
}

// Decode appends rows from an encoded value. Columnar input is a mapping of
// column name to array; record input is a list of mappings. Either layout
// is accepted regardless of the schema's own layout.
func (t *Table) Decode(v any) error {
	switch data := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return t.CreateRows(data)
	case []map[string]any:
		recs := make([]any, len(data))
		for i, r := range data {
			recs[i] = r
		}
		return t.decodeRecords(recs)
	case []any:
		return t.decodeRecords(data)
	default:
		return &dynamo.SchemaMismatchError{Table: t.schema.Name, Reason: fmt.Sprintf("cannot decode %T", v)}
	}
}

func (t *Table) decodeRecords(recs []any) error {
	if len(recs) == 0 {
		return nil
	}
	names := make(map[string]bool)
	rows := make([]map[string]any, len(recs))
	for i, r := range recs {
		m, ok := r.(map[string]any)
		if !ok {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Reason: fmt.Sprintf("record %d: expected object, got %T", i, r)}
		}
		rows[i] = m
		for k := range m {
			names[k] = true
		}
	}

	cols := make(map[string]any, len(names))
	for name := range names {
		c, ok := t.schema.column(name)
		if !ok {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: name, Reason: "column not declared"}
		}
		vals := make([]any, len(rows))
		for i, r := range rows {
			if v, ok := r[name]; ok {
				vals[i] = v
			} else {
				vals[i] = c.zero()
			}
		}
		cols[name] = vals
	}
	return t.CreateRows(cols)
}
