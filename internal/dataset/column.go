package dataset

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	Categorical Kind = iota
	Numeric
	Datetime
	Boolean
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Datetime:
		return "datetime"
	case Boolean:
		return "boolean"
	default:
		return "categorical"
	}
}

// Column is an immutable, typed, nullable vector of cells. Only the slice that
// matches Kind is populated; null cells hold the zero value.
type Column struct {
	name    string
	kind    Kind
	integer bool
	nums    []float64
	strs    []string
	times   []time.Time
	layout  string
	null    []bool
}

// NewNumeric builds a floating point column. NaN marks a missing cell.
func NewNumeric(name string, vals ...float64) *Column {
	return newNumeric(name, false, vals)
}

// NewInteger builds an integer column. NaN marks a missing cell; other values
// are truncated toward zero.
func NewInteger(name string, vals ...float64) *Column {
	cp := make([]float64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			cp[i] = v
			continue
		}
		cp[i] = math.Trunc(v)
	}
	return newNumeric(name, true, cp)
}

func newNumeric(name string, integer bool, vals []float64) *Column {
	c := &Column{name: name, kind: Numeric, integer: integer, nums: make([]float64, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if math.IsNaN(v) {
			c.null[i] = true
			continue
		}
		c.nums[i] = v
	}
	return c
}

// NewText builds a categorical column without missing cells.
func NewText(name string, vals ...string) *Column {
	return NewTextNullable(name, vals, nil)
}

// NewTextNullable builds a categorical column. A nil null mask means no cell is missing.
func NewTextNullable(name string, vals []string, null []bool) *Column {
	c := &Column{name: name, kind: Categorical, strs: make([]string, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if i < len(null) && null[i] {
			c.null[i] = true
			continue
		}
		c.strs[i] = v
	}
	return c
}

// NewDatetime builds a datetime column rendered with layout (RFC3339 when empty).
func NewDatetime(name, layout string, vals []time.Time, null []bool) *Column {
	if layout == "" {
		layout = time.RFC3339
	}
	c := &Column{name: name, kind: Datetime, layout: layout, times: make([]time.Time, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if i < len(null) && null[i] {
			c.null[i] = true
			continue
		}
		c.times[i] = v
	}
	return c
}

// NewBoolean builds a boolean column.
func NewBoolean(name string, vals []bool, null []bool) *Column {
	c := &Column{name: name, kind: Boolean, strs: make([]string, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if i < len(null) && null[i] {
			c.null[i] = true
			continue
		}
		c.strs[i] = strconv.FormatBool(v)
	}
	return c
}

func (c *Column) Name() string    { return c.name }
func (c *Column) Kind() Kind      { return c.kind }
func (c *Column) IsInteger() bool { return c.kind == Numeric && c.integer }
func (c *Column) Len() int        { return len(c.null) }
func (c *Column) Layout() string  { return c.layout }

// IsNumeric reports integer or floating point storage.
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool { return c.null[i] }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.null {
		if v {
			n++
		}
	}
	return n
}

// MissingFraction is NullCount/Len, 0 for an empty column.
func (c *Column) MissingFraction() float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.NullCount()) / float64(c.Len())
}

// Float returns the numeric value of row i, NaN when missing or non-numeric.
func (c *Column) Float(i int) float64 {
	if c.kind != Numeric || c.null[i] {
		return math.NaN()
	}
	return c.nums[i]
}

// Time returns the datetime value of row i.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.kind != Datetime || c.null[i] {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Text renders row i as a CSV cell; missing cells render empty.
func (c *Column) Text(i int) string {
	if c.null[i] {
		return ""
	}
	switch c.kind {
	case Numeric:
		return formatNumber(c.nums[i], c.integer)
	case Datetime:
		return c.times[i].Format(c.layout)
	default:
		return c.strs[i]
	}
}

// Floats returns the non-missing numeric values in row order.
func (c *Column) Floats() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.nums))
	for i, v := range c.nums {
		if !c.null[i] {
			out = append(out, v)
		}
	}
	return out
}

// Texts returns the non-missing cells rendered as text, in row order.
func (c *Column) Texts() []string {
	out := make([]string, 0, c.Len())
	for i := range c.null {
		if !c.null[i] {
			out = append(out, c.Text(i))
		}
	}
	return out
}

// Distinct returns the sorted set of non-missing cell texts.
func (c *Column) Distinct() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, v := range c.Texts() {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Cardinality is the number of distinct non-missing values.
func (c *Column) Cardinality() int { return len(c.Distinct()) }

// Renamed returns a copy of the column header sharing the immutable cells.
func (c *Column) Renamed(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// Select returns a new column holding rows idx, in that order.
func (c *Column) Select(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind, integer: c.integer, layout: c.layout, null: make([]bool, len(idx))}
	switch c.kind {
	case Numeric:
		out.nums = make([]float64, len(idx))
	case Datetime:
		out.times = make([]time.Time, len(idx))
	default:
		out.strs = make([]string, len(idx))
	}
	for j, i := range idx {
		out.null[j] = c.null[i]
		switch c.kind {
		case Numeric:
			out.nums[j] = c.nums[i]
		case Datetime:
			out.times[j] = c.times[i]
		default:
			out.strs[j] = c.strs[i]
		}
	}
	return out
}

func formatNumber(v float64, integer bool) string {
	if integer && v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FillFloat returns a numeric column with missing cells set to v. Integer
// storage survives only when v is integral.
func (c *Column) FillFloat(v float64) *Column {
	out := c.Select(identity(c.Len()))
	out.integer = c.integer && v == math.Trunc(v)
	for i := range out.null {
		if out.null[i] {
			out.nums[i] = v
			out.null[i] = false
		}
	}
	return out
}

// FillTime returns a datetime column with missing cells set to t.
func (c *Column) FillTime(t time.Time) *Column {
	out := c.Select(identity(c.Len()))
	for i := range out.null {
		if out.null[i] {
			out.times[i] = t
			out.null[i] = false
		}
	}
	return out
}

// FillText returns a categorical or boolean column with missing cells set to s.
func (c *Column) FillText(s string) *Column {
	out := c.Select(identity(c.Len()))
	for i := range out.null {
		if out.null[i] {
			out.strs[i] = s
			out.null[i] = false
		}
	}
	return out
}

// MapFloats applies fn to every present value and returns a floating point
// column under the same name. Missing cells stay missing.
func (c *Column) MapFloats(fn func(float64) float64) *Column {
	vals := make([]float64, c.Len())
	for i := range vals {
		if c.kind != Numeric || c.null[i] {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = fn(c.nums[i])
	}
	return NewNumeric(c.name, vals...)
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
