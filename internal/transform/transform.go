// Package transform applies preprocessing operations to datasets.
//
// Every operation returns a new dataset and a changed flag; when changed is
// false the returned pointer is the input, so re-running an operation on data
// that already satisfies it is a reported no-op rather than an error.
package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/stats"
)

// Options are the tunables of the transformer.
type Options struct {
	MissingMarkers []string
	// DropColumnMissingFraction drops columns at least this empty before imputing.
	DropColumnMissingFraction float64
	VarianceThreshold         float64
	// OneHotMaxCategories is the largest cardinality auto-encoding one-hot encodes.
	OneHotMaxCategories int
	IQRMultiplier       float64
}

// DefaultOptions returns the canonical tunables.
func DefaultOptions() Options {
	return Options{
		MissingMarkers:            append([]string(nil), dataset.DefaultMissingMarkers...),
		DropColumnMissingFraction: 0.5,
		VarianceThreshold:         0.01,
		OneHotMaxCategories:       10,
		IQRMultiplier:             1.5,
	}
}

// EncodeMode selects the categorical encoding policy.
type EncodeMode int

const (
	// EncodeAuto one-hot encodes low-cardinality columns and label encodes the rest.
	EncodeAuto EncodeMode = iota
	EncodeOneHot
	EncodeLabel
)

const tolerance = 1e-9

// ErrNoColumnsLeft is returned when imputation would drop every column.
var ErrNoColumnsLeft = errors.New("every column is too sparse to impute")

// Transformer holds immutable options and is safe for concurrent use.
type Transformer struct {
	opt Options
	log *zap.Logger
}

// New builds a transformer. A nil logger discards output.
func New(opt Options, log *zap.Logger) *Transformer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transformer{opt: opt, log: log}
}

// Options returns the transformer's configuration.
func (t *Transformer) Options() Options { return t.opt }

// HandleMissing normalizes placeholder markers, drops mostly empty columns,
// imputes the rest (numeric by mean, datetime by median, others by mode) and
// finally drops rows that still hold a missing cell. When every column is
// too sparse to keep, the input is returned unchanged and a warning logged.
func (t *Transformer) HandleMissing(ds *dataset.Dataset) (*dataset.Dataset, bool) {
	out, changed, err := t.handleMissing(ds)
	if err != nil {
		t.log.Warn("missing values left in place", zap.String("dataset", ds.Name()), zap.Error(err))
		return ds, false
	}
	return out, changed
}

func (t *Transformer) handleMissing(ds *dataset.Dataset) (*dataset.Dataset, bool, error) {
	view, _ := ds.NormalizeMissing(t.opt.MissingMarkers)
	if !view.HasMissing() {
		return ds, false, nil
	}

	var drop []string
	for _, c := range view.Columns() {
		if c.NullCount() > 0 && c.MissingFraction() >= t.opt.DropColumnMissingFraction {
			drop = append(drop, c.Name())
		}
	}
	if len(drop) == view.Width() {
		return ds, false, fmt.Errorf("%w: %s", ErrNoColumnsLeft, strings.Join(drop, ", "))
	}
	out := view.DropColumns(drop...)

	filled := out.Columns()
	for i, c := range filled {
		if c.NullCount() == 0 {
			continue
		}
		switch c.Kind() {
		case dataset.Numeric:
			if vals := c.Floats(); len(vals) > 0 {
				filled[i] = c.FillFloat(stats.Mean(vals))
			}
		case dataset.Datetime:
			if m, ok := medianTime(c); ok {
				filled[i] = c.FillTime(m)
			}
		default:
			if m, ok := stats.Mode(c.Texts()); ok {
				filled[i] = c.FillText(m)
			}
		}
	}
	out = mustColumns(out, filled)

	var keep []int
	for r := 0; r < out.Rows(); r++ {
		complete := true
		for _, c := range filled {
			if c.IsNull(r) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	if len(keep) != out.Rows() {
		out = out.SelectRows(keep)
	}
	t.log.Debug("missing values handled",
		zap.String("dataset", ds.Name()),
		zap.Strings("dropped_columns", drop),
		zap.Int("dropped_rows", view.Rows()-out.Rows()))
	return out, true, nil
}

func medianTime(c *dataset.Column) (time.Time, bool) {
	var secs []float64
	var loc *time.Location
	for i := 0; i < c.Len(); i++ {
		if tm, ok := c.Time(i); ok {
			secs = append(secs, float64(tm.Unix()))
			if loc == nil {
				loc = tm.Location()
			}
		}
	}
	if len(secs) == 0 {
		return time.Time{}, false
	}
	m := stats.Median(secs)
	whole := math.Floor(m)
	return time.Unix(int64(whole), int64((m-whole)*1e9)).In(loc), true
}

// Normalize min-max scales numeric columns onto [0,1]. A constant column maps
// to 0. Without cols every numeric column is a target.
func (t *Transformer) Normalize(ds *dataset.Dataset, cols ...string) (*dataset.Dataset, bool) {
	targets := pick(ds, cols, hasNumbers)
	done := true
	for _, c := range targets {
		lo, hi, _ := stats.MinMax(c.Floats())
		if !(lo == 0 && (hi == 1 || hi == 0)) {
			done = false
			break
		}
	}
	if done {
		return ds, false
	}
	return replaceEach(ds, targets, func(c *dataset.Column) *dataset.Column {
		lo, hi, _ := stats.MinMax(c.Floats())
		span := hi - lo
		return c.MapFloats(func(v float64) float64 {
			if span == 0 {
				return 0
			}
			return (v - lo) / span
		})
	}), true
}

// Standardize rescales numeric columns to zero mean and unit population
// standard deviation. A constant column maps to 0.
func (t *Transformer) Standardize(ds *dataset.Dataset, cols ...string) (*dataset.Dataset, bool) {
	targets := pick(ds, cols, hasNumbers)
	done := true
	for _, c := range targets {
		vals := c.Floats()
		mean, sd := stats.Mean(vals), stats.Std(vals, 0)
		standard := math.Abs(mean) < tolerance && math.Abs(sd-1) < tolerance
		zero := math.Abs(mean) < tolerance && sd < tolerance
		if !standard && !zero {
			done = false
			break
		}
	}
	if done {
		return ds, false
	}
	return replaceEach(ds, targets, func(c *dataset.Column) *dataset.Column {
		vals := c.Floats()
		mean, sd := stats.Mean(vals), stats.Std(vals, 0)
		return c.MapFloats(func(v float64) float64 {
			if sd == 0 {
				return 0
			}
			return (v - mean) / sd
		})
	}), true
}

// FilterByVariance drops numeric columns whose population variance is below
// threshold. Columns without values count as zero variance.
func (t *Transformer) FilterByVariance(ds *dataset.Dataset, threshold float64, cols ...string) (*dataset.Dataset, bool) {
	var drop []string
	for _, c := range pick(ds, cols, (*dataset.Column).IsNumeric) {
		if stats.Variance(c.Floats(), 0) < threshold {
			drop = append(drop, c.Name())
		}
	}
	if len(drop) == 0 {
		return ds, false
	}
	t.log.Debug("low variance columns dropped", zap.Strings("columns", drop), zap.Float64("threshold", threshold))
	return ds.DropColumns(drop...), true
}

// Encode converts categorical and boolean columns to numbers. One-hot
// encoding expands a column in place into one 0/1 column per sorted
// category, named <col>_<value>; a missing cell sets every flag to 0. Label
// encoding maps sorted categories to 0..k-1 and keeps missing cells missing.
func (t *Transformer) Encode(ds *dataset.Dataset, mode EncodeMode, cols ...string) (*dataset.Dataset, bool) {
	targets := pick(ds, cols, func(c *dataset.Column) bool {
		return (c.Kind() == dataset.Categorical || c.Kind() == dataset.Boolean) && c.Cardinality() > 0
	})
	if len(targets) == 0 {
		return ds, false
	}
	taken := make(map[string]struct{}, ds.Width())
	for _, n := range ds.Names() {
		taken[n] = struct{}{}
	}
	out := ds
	for _, c := range targets {
		oneHot := mode == EncodeOneHot || (mode == EncodeAuto && c.Cardinality() <= t.opt.OneHotMaxCategories)
		var repl []*dataset.Column
		if oneHot {
			repl = oneHotColumns(c, taken)
		} else {
			repl = []*dataset.Column{labelColumn(c)}
		}
		next, err := out.ReplaceColumns(c.Name(), repl...)
		if err != nil {
			t.log.Error("encode column", zap.String("column", c.Name()), zap.Error(err))
			return ds, false
		}
		out = next
	}
	return out, true
}

func oneHotColumns(c *dataset.Column, taken map[string]struct{}) []*dataset.Column {
	cats := c.Distinct()
	out := make([]*dataset.Column, 0, len(cats))
	for _, cat := range cats {
		vals := make([]float64, c.Len())
		for i := range vals {
			if !c.IsNull(i) && c.Text(i) == cat {
				vals[i] = 1
			}
		}
		out = append(out, dataset.NewInteger(uniqueName(c.Name()+"_"+cat, taken), vals...))
	}
	return out
}

func labelColumn(c *dataset.Column) *dataset.Column {
	codes := make(map[string]float64)
	for i, cat := range c.Distinct() {
		codes[cat] = float64(i)
	}
	vals := make([]float64, c.Len())
	for i := range vals {
		if c.IsNull(i) {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = codes[c.Text(i)]
	}
	return dataset.NewInteger(c.Name(), vals...)
}

func uniqueName(name string, taken map[string]struct{}) string {
	n := name
	for k := 1; ; k++ {
		if _, dup := taken[n]; !dup {
			break
		}
		n = fmt.Sprintf("%s.%d", name, k)
	}
	taken[n] = struct{}{}
	return n
}

// DropOutliers removes rows where any target numeric column lies outside its
// Tukey fences. Missing cells never cause a drop.
func (t *Transformer) DropOutliers(ds *dataset.Dataset, cols ...string) (*dataset.Dataset, bool) {
	targets := pick(ds, cols, hasNumbers)
	bad := make([]bool, ds.Rows())
	removed := 0
	for _, c := range targets {
		f, ok := stats.TukeyFences(c.Floats(), t.opt.IQRMultiplier)
		if !ok {
			continue
		}
		for r := 0; r < c.Len(); r++ {
			if !bad[r] && !c.IsNull(r) && f.Outside(c.Float(r)) {
				bad[r] = true
				removed++
			}
		}
	}
	if removed == 0 {
		return ds, false
	}
	keep := make([]int, 0, ds.Rows()-removed)
	for r, b := range bad {
		if !b {
			keep = append(keep, r)
		}
	}
	return ds.SelectRows(keep), true
}

// ClipOutliers winsorizes target numeric columns into their Tukey fences.
func (t *Transformer) ClipOutliers(ds *dataset.Dataset, cols ...string) (*dataset.Dataset, bool) {
	var clip []*dataset.Column
	for _, c := range pick(ds, cols, hasNumbers) {
		f, ok := stats.TukeyFences(c.Floats(), t.opt.IQRMultiplier)
		if !ok {
			continue
		}
		for _, v := range c.Floats() {
			if f.Outside(v) {
				clip = append(clip, c)
				break
			}
		}
	}
	if len(clip) == 0 {
		return ds, false
	}
	return replaceEach(ds, clip, func(c *dataset.Column) *dataset.Column {
		f, _ := stats.TukeyFences(c.Floats(), t.opt.IQRMultiplier)
		return c.MapFloats(f.Clip)
	}), true
}

// DropColumns removes the named columns that exist.
func (t *Transformer) DropColumns(ds *dataset.Dataset, cols ...string) (*dataset.Dataset, bool) {
	var present []string
	for _, n := range cols {
		if ds.Index(n) >= 0 {
			present = append(present, n)
		}
	}
	if len(present) == 0 {
		return ds, false
	}
	return ds.DropColumns(present...), true
}

func hasNumbers(c *dataset.Column) bool {
	return c.IsNumeric() && c.NullCount() < c.Len()
}

// pick returns the columns matching keep, restricted to names when any are
// given. Unknown names are ignored. Columns come back in dataset order.
func pick(ds *dataset.Dataset, names []string, keep func(*dataset.Column) bool) []*dataset.Column {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []*dataset.Column
	for _, c := range ds.Columns() {
		if len(names) > 0 {
			if _, ok := want[c.Name()]; !ok {
				continue
			}
		}
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func replaceEach(ds *dataset.Dataset, cols []*dataset.Column, fn func(*dataset.Column) *dataset.Column) *dataset.Dataset {
	next := ds.Columns()
	for _, c := range cols {
		next[ds.Index(c.Name())] = fn(c)
	}
	return mustColumns(ds, next)
}

// mustColumns rebuilds ds from same-length columns derived from its own.
func mustColumns(ds *dataset.Dataset, cols []*dataset.Column) *dataset.Dataset {
	out, err := ds.WithColumns(cols...)
	if err != nil {
		panic(err)
	}
	return out
}

// describe lists column names for log and step details.
func describe(cols []string) string {
	if len(cols) == 0 {
		return "all columns"
	}
	s := append([]string(nil), cols...)
	sort.Strings(s)
	return strings.Join(s, ", ")
}
