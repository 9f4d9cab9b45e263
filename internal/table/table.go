// Package table implements columnar entity tables.
//
// A [Table] stores homogeneous records (atoms, photons, parts, sensors) as
// one typed slice per column. All columns always share one length. Columns
// and whole tables may be gated by a capability; gated data exists only
// while the capability is enabled, and toggling a capability adds or drops
// the gated columns across every row at once.
package table

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/san-kum/labsim/internal/dynamo"
)

type ColumnKind int

const (
	Float ColumnKind = iota
	Bool
	Text
)

type Column struct {
	Name       string
	Kind       ColumnKind
	Default    any
	Capability string
	Immutable  bool
	Required   bool
	OneOf      []string
	// OmitDefault drops the field from encoded records when it equals Default.
	OmitDefault bool
}

// zero returns the column default as a value of the column's kind.
func (c Column) zero() any {
	switch c.Kind {
	case Float:
		f, _ := dynamo.ToFloat(c.Default)
		return f
	case Bool:
		b, _ := c.Default.(bool)
		return b
	default:
		s, _ := c.Default.(string)
		return s
	}
}

type Layout int

const (
	Columnar Layout = iota
	Records
)

type Schema struct {
	Name       string
	Columns    []Column
	Layout     Layout
	Capability string
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row is one record keyed by column name.
type Row map[string]any

type Table struct {
	schema  Schema
	n       int
	floats  map[string][]float64
	bools   map[string][]bool
	texts   map[string][]string
	enabled map[string]bool

	onChange func()
}

func New(schema Schema, caps map[string]bool) *Table {
	t := &Table{
		schema:  schema,
		floats:  make(map[string][]float64),
		bools:   make(map[string][]bool),
		texts:   make(map[string][]string),
		enabled: make(map[string]bool),
	}
	for c, on := range caps {
		if on {
			t.enabled[c] = true
		}
	}
	for _, c := range schema.Columns {
		if t.present(c) {
			t.alloc(c, 0)
		}
	}
	return t
}

func (t *Table) Name() string       { return t.schema.Name }
func (t *Table) Schema() Schema     { return t.schema }
func (t *Table) Len() int           { return t.n }
func (t *Table) OnChange(fn func()) { t.onChange = fn }

func (t *Table) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

// Available reports whether the table itself is usable under the current
// capabilities.
func (t *Table) Available() bool {
	return t.schema.Capability == "" || t.enabled[t.schema.Capability]
}

func (t *Table) present(c Column) bool {
	return c.Capability == "" || t.enabled[c.Capability]
}

// Columns lists the columns currently present, in schema order.
func (t *Table) Columns() []Column {
	cols := make([]Column, 0, len(t.schema.Columns))
	for _, c := range t.schema.Columns {
		if t.present(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) HasColumn(name string) bool {
	c, ok := t.schema.column(name)
	return ok && t.present(c)
}

func (t *Table) alloc(c Column, n int) {
	switch c.Kind {
	case Float:
		col := make([]float64, n)
		d, _ := dynamo.ToFloat(c.Default)
		for i := range col {
			col[i] = d
		}
		t.floats[c.Name] = col
	case Bool:
		col := make([]bool, n)
		d, _ := c.Default.(bool)
		for i := range col {
			col[i] = d
		}
		t.bools[c.Name] = col
	case Text:
		col := make([]string, n)
		d, _ := c.Default.(string)
		for i := range col {
			col[i] = d
		}
		t.texts[c.Name] = col
	}
}

func (t *Table) drop(c Column) {
	delete(t.floats, c.Name)
	delete(t.bools, c.Name)
	delete(t.texts, c.Name)
}

// CreateRows appends rows given as column arrays. Every array must have the
// same length; omitted columns are filled with their defaults. Nothing is
// appended if any column fails validation.
func (t *Table) CreateRows(data map[string]any) error {
	if !t.Available() {
		return &dynamo.CapabilityMismatchError{Capability: t.schema.Capability, Table: t.schema.Name}
	}

	n := -1
	parsed := make(map[string][]any, len(data))
	for name, raw := range data {
		c, ok := t.schema.column(name)
		if !ok {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: name, Reason: "column not declared"}
		}
		if !t.present(c) {
			return &dynamo.CapabilityMismatchError{Capability: c.Capability, Table: t.schema.Name, Column: name}
		}
		vals, ok := toSlice(raw)
		if !ok {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: name, Reason: fmt.Sprintf("expected array, got %T", raw)}
		}
		if n >= 0 && len(vals) != n {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: name, Reason: fmt.Sprintf("length %d, other columns have %d", len(vals), n)}
		}
		n = len(vals)
		for i, v := range vals {
			nv, err := t.normalize(c, v)
			if err != nil {
				return err
			}
			vals[i] = nv
		}
		parsed[name] = vals
	}
	if n <= 0 {
		return nil
	}
	for _, c := range t.Columns() {
		if _, ok := parsed[c.Name]; !ok && c.Required {
			return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: c.Name, Reason: "required column missing"}
		}
	}

	for _, c := range t.Columns() {
		vals, supplied := parsed[c.Name]
		for i := 0; i < n; i++ {
			v := c.zero()
			if supplied {
				v = vals[i]
			}
			t.appendValue(c, v)
		}
	}
	t.n += n
	t.changed()
	return nil
}

// Append adds a single row. Fields missing from row take their defaults.
func (t *Table) Append(row Row) error {
	data := make(map[string]any, len(row))
	for k, v := range row {
		data[k] = []any{v}
	}
	if len(data) == 0 {
		c := t.Columns()
		if len(c) == 0 {
			return nil
		}
		data[c[0].Name] = []any{c[0].zero()}
	}
	return t.CreateRows(data)
}

func (t *Table) appendValue(c Column, v any) {
	switch c.Kind {
	case Float:
		f, _ := dynamo.ToFloat(v)
		t.floats[c.Name] = append(t.floats[c.Name], f)
	case Bool:
		b, _ := v.(bool)
		t.bools[c.Name] = append(t.bools[c.Name], b)
	case Text:
		s, _ := v.(string)
		t.texts[c.Name] = append(t.texts[c.Name], s)
	}
}

func (t *Table) normalize(c Column, v any) (any, error) {
	switch c.Kind {
	case Float:
		f, ok := dynamo.ToFloat(v)
		if !ok {
			return nil, &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: c.Name, Reason: fmt.Sprintf("expected number, got %T", v)}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &dynamo.InvalidValueError{Property: t.schema.Name + "." + c.Name, Value: v, Reason: "must be finite"}
		}
		return f, nil
	case Bool:
		switch b := v.(type) {
		case bool:
			return b, nil
		}
		if f, ok := dynamo.ToFloat(v); ok && (f == 0 || f == 1) {
			return f == 1, nil
		}
		return nil, &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: c.Name, Reason: fmt.Sprintf("expected bool, got %T", v)}
	default:
		s, ok := v.(string)
		if !ok {
			return nil, &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: c.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		if len(c.OneOf) > 0 && !slices.Contains(c.OneOf, s) {
			return nil, &dynamo.InvalidValueError{Property: t.schema.Name + "." + c.Name, Value: s, Reason: fmt.Sprintf("must be one of %v", c.OneOf)}
		}
		return s, nil
	}
}

func (t *Table) checkIndex(i int) error {
	if i < 0 || i >= t.n {
		return &dynamo.SchemaMismatchError{Table: t.schema.Name, Reason: fmt.Sprintf("row %d out of range [0, %d)", i, t.n)}
	}
	return nil
}

func (t *Table) lookup(field string) (Column, error) {
	c, ok := t.schema.column(field)
	if !ok {
		return Column{}, &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: field, Reason: "column not declared"}
	}
	if !t.present(c) {
		return Column{}, &dynamo.CapabilityMismatchError{Capability: c.Capability, Table: t.schema.Name, Column: field}
	}
	return c, nil
}

// Row returns every present field of row i. Fields of disabled capabilities
// are absent, not nil.
func (t *Table) Row(i int) (Row, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	row := make(Row)
	for _, c := range t.Columns() {
		row[c.Name] = t.value(c, i)
	}
	return row, nil
}

func (t *Table) Rows() []Row {
	rows := make([]Row, t.n)
	for i := range rows {
		rows[i], _ = t.Row(i)
	}
	return rows
}

func (t *Table) value(c Column, i int) any {
	switch c.Kind {
	case Float:
		return t.floats[c.Name][i]
	case Bool:
		return t.bools[c.Name][i]
	default:
		return t.texts[c.Name][i]
	}
}

func (t *Table) Get(i int, field string) (any, error) {
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	c, err := t.lookup(field)
	if err != nil {
		return nil, err
	}
	return t.value(c, i), nil
}

// SetField mutates one field in place.
func (t *Table) SetField(i int, field string, v any) error {
	if err := t.checkIndex(i); err != nil {
		return err
	}
	c, err := t.lookup(field)
	if err != nil {
		return err
	}
	if c.Immutable {
		return &dynamo.SchemaMismatchError{Table: t.schema.Name, Column: field, Reason: "column is immutable"}
	}
	nv, err := t.normalize(c, v)
	if err != nil {
		return err
	}
	if t.value(c, i) == nv {
		return nil
	}
	switch c.Kind {
	case Float:
		t.floats[field][i] = nv.(float64)
	case Bool:
		t.bools[field][i] = nv.(bool)
	default:
		t.texts[field][i] = nv.(string)
	}
	t.changed()
	return nil
}

// Column returns the live backing slice of a float column, or nil. Callers
// that write through it must not change its length.
func (t *Table) Column(name string) []float64 {
	return t.floats[name]
}

func (t *Table) Texts(name string) []string {
	return t.texts[name]
}

func (t *Table) Bools(name string) []bool {
	return t.bools[name]
}

func (t *Table) Enabled(capability string) bool { return t.enabled[capability] }

// EnableCapability adds the columns gated by capability, back-filled with
// their defaults.
func (t *Table) EnableCapability(capability string) {
	if t.enabled[capability] {
		return
	}
	t.enabled[capability] = true
	for _, c := range t.schema.Columns {
		if c.Capability == capability {
			t.alloc(c, t.n)
		}
	}
	t.changed()
}

// DisableCapability drops the columns gated by capability. A table gated as
// a whole loses all its rows.
func (t *Table) DisableCapability(capability string) {
	if !t.enabled[capability] {
		return
	}
	for _, c := range t.schema.Columns {
		if c.Capability == capability {
			t.drop(c)
		}
	}
	delete(t.enabled, capability)
	if t.schema.Capability == capability {
		t.truncate(0)
	}
	t.changed()
}

func (t *Table) truncate(n int) {
	for name, col := range t.floats {
		t.floats[name] = col[:n]
	}
	for name, col := range t.bools {
		t.bools[name] = col[:n]
	}
	for name, col := range t.texts {
		t.texts[name] = col[:n]
	}
	t.n = n
}

// RemoveRows deletes every row for which drop returns true, preserving the
// order of the rest, and returns the number removed.
func (t *Table) RemoveRows(drop func(i int) bool) int {
	keep := make([]int, 0, t.n)
	for i := 0; i < t.n; i++ {
		if !drop(i) {
			keep = append(keep, i)
		}
	}
	removed := t.n - len(keep)
	if removed == 0 {
		return 0
	}
	for name, col := range t.floats {
		for j, i := range keep {
			col[j] = col[i]
		}
		t.floats[name] = col[:len(keep)]
	}
	for name, col := range t.bools {
		for j, i := range keep {
			col[j] = col[i]
		}
		t.bools[name] = col[:len(keep)]
	}
	for name, col := range t.texts {
		for j, i := range keep {
			col[j] = col[i]
		}
		t.texts[name] = col[:len(keep)]
	}
	t.n = len(keep)
	t.changed()
	return removed
}

// Validate checks that every present column has exactly Len entries.
func (t *Table) Validate() error {
	check := func(name string, l int) error {
		if l != t.n {
			return &dynamo.FatalIntegrationError{Reason: fmt.Sprintf("table %q column %q has %d rows, table has %d", t.schema.Name, name, l, t.n)}
		}
		return nil
	}
	for _, c := range t.Columns() {
		var l int
		switch c.Kind {
		case Float:
			col, ok := t.floats[c.Name]
			if !ok {
				return &dynamo.FatalIntegrationError{Reason: fmt.Sprintf("table %q is missing column %q", t.schema.Name, c.Name)}
			}
			l = len(col)
		case Bool:
			l = len(t.bools[c.Name])
		default:
			l = len(t.texts[c.Name])
		}
		if err := check(c.Name, l); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy without the change hook.
func (t *Table) Clone() *Table {
	c := &Table{
		schema:  t.schema,
		n:       t.n,
		floats:  make(map[string][]float64, len(t.floats)),
		bools:   make(map[string][]bool, len(t.bools)),
		texts:   make(map[string][]string, len(t.texts)),
		enabled: make(map[string]bool, len(t.enabled)),
	}
	for k, v := range t.floats {
		c.floats[k] = slices.Clone(v)
	}
	for k, v := range t.bools {
		c.bools[k] = slices.Clone(v)
	}
	for k, v := range t.texts {
		c.texts[k] = slices.Clone(v)
	}
	for k, v := range t.enabled {
		c.enabled[k] = v
	}
	return c
}

// Equal reports whether two tables hold the same present columns and data.
func (t *Table) Equal(o *Table) bool {
	if t.n != o.n || t.schema.Name != o.schema.Name {
		return false
	}
	return reflect.DeepEqual(t.Rows(), o.Rows())
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return slices.Clone(s), true
	case []float64:
		out := make([]any, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
