// Package dataset provides the in-memory columnar table the analyzer and the
// transformer operate on.
//
// A Dataset is copy-on-write: every derivation returns a new Dataset and never
// touches its receiver. Columns are immutable once built, so unchanged columns
// are shared between a dataset and the datasets derived from it. Callers may
// therefore keep a reference to an original for comparison or undo.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNoCommonColumns is returned by Merge when the inputs share no column.
	ErrNoCommonColumns = errors.New("no common columns between datasets")
)

// DefaultMissingMarkers are the placeholder cells treated as missing by NormalizeMissing.
var DefaultMissingMarkers = []string{"?", "", " "}

// Dataset is an ordered set of equally long, uniquely named columns.
type Dataset struct {
	name string
	cols []*Column
	rows int
	// opt is the parsing locale the source was read with; re-inference reuses it.
	opt ReadOptions
}

// New validates and assembles a dataset.
func New(name string, cols ...*Column) (*Dataset, error) {
	d := &Dataset{name: name, cols: make([]*Column, 0, len(cols))}
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := seen[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name())
		}
		seen[c.Name()] = struct{}{}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name(), c.Len(), d.rows)
		}
		d.cols = append(d.cols, c)
	}
	return d, nil
}

// MustNew is New for statically known inputs; it panics on error.
func MustNew(name string, cols ...*Column) *Dataset {
	d, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dataset) Name() string { return d.name }
func (d *Dataset) Rows() int    { return d.rows }
func (d *Dataset) Width() int   { return len(d.cols) }

// ReadOptions returns the options the dataset was parsed with.
func (d *Dataset) ReadOptions() ReadOptions { return d.opt }

// WithName returns the same columns under a new dataset name.
func (d *Dataset) WithName(name string) *Dataset {
	return &Dataset{name: name, cols: d.Columns(), rows: d.rows, opt: d.opt}
}

// WithReadOptions returns the same columns tagged with opt.
func (d *Dataset) WithReadOptions(opt ReadOptions) *Dataset {
	return &Dataset{name: d.name, cols: d.Columns(), rows: d.rows, opt: opt}
}

// WithColumns assembles cols into a dataset that keeps d's name and read options.
func (d *Dataset) WithColumns(cols ...*Column) (*Dataset, error) {
	out, err := New(d.name, cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = d.rows
	}
	out.opt = d.opt
	return out, nil
}

// Names lists column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name()
	}
	return out
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.cols))
	copy(out, d.cols)
	return out
}

// Index returns the position of the named column or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.cols {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	if i := d.Index(name); i >= 0 {
		return d.cols[i], true
	}
	return nil, false
}

// Record renders row i as text cells.
func (d *Dataset) Record(i int) []string {
	out := make([]string, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Text(i)
	}
	return out
}

// HasMissing reports whether any cell is missing.
func (d *Dataset) HasMissing() bool {
	for _, c := range d.cols {
		if c.NullCount() > 0 {
			return true
		}
	}
	return false
}

// Head returns the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > d.rows {
		n = d.rows
	}
	return d.SelectRows(identity(n))
}

// SelectRows keeps the rows at idx, in that order.
func (d *Dataset) SelectRows(idx []int) *Dataset {
	out := &Dataset{name: d.name, cols: make([]*Column, len(d.cols)), rows: len(idx), opt: d.opt}
	for j, c := range d.cols {
		out.cols[j] = c.Select(idx)
	}
	return out
}

// DropColumns removes the named columns. Unknown names are ignored.
func (d *Dataset) DropColumns(names ...string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	out := &Dataset{name: d.name, rows: d.rows, opt: d.opt}
	for _, c := range d.cols {
		if _, ok := drop[c.Name()]; ok {
			continue
		}
		out.cols = append(out.cols, c)
	}
	return out
}

// ReplaceColumn swaps the named column for col.
func (d *Dataset) ReplaceColumn(name string, col *Column) (*Dataset, error) {
	return d.ReplaceColumns(name, col)
}

// ReplaceColumns swaps the named column for zero or more columns placed at its
// position. It is how one-hot encoding expands a column.
func (d *Dataset) ReplaceColumns(name string, cols ...*Column) (*Dataset, error) {
	at := d.Index(name)
	if at < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	next := make([]*Column, 0, len(d.cols)+len(cols)-1)
	next = append(next, d.cols[:at]...)
	next = append(next, cols...)
	next = append(next, d.cols[at+1:]...)
	return d.WithColumns(next...)
}

// NormalizeMissing turns placeholder cells of text columns into missing cells
// and re-infers the affected columns, so a numeric column polluted with "?"
// becomes numeric again. Re-inference uses the locale the dataset was read
// with. changed is false when nothing matched.
func (d *Dataset) NormalizeMissing(markers []string) (*Dataset, bool) {
	if markers == nil {
		markers = DefaultMissingMarkers
	}
	isMarker := func(s string) bool {
		for _, m := range markers {
			if s == m || (strings.TrimSpace(m) == "" && strings.TrimSpace(s) == "") {
				return true
			}
		}
		return false
	}
	changed := false
	next := d.Columns()
	for j, c := range d.cols {
		if c.Kind() != Categorical {
			continue
		}
		hit := false
		cells := make([]string, c.Len())
		for i := range cells {
			if c.IsNull(i) {
				continue
			}
			if isMarker(c.strs[i]) {
				hit = true
				continue
			}
			cells[i] = c.strs[i]
		}
		if !hit {
			continue
		}
		changed = true
		next[j] = InferColumn(c.Name(), cells, d.opt)
	}
	if !changed {
		return d, false
	}
	return &Dataset{name: d.name, cols: next, rows: d.rows, opt: d.opt}, true
}
