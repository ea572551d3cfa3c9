package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/stats"
)

// ProfileOptions controls the descriptive report.
type ProfileOptions struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// TopValues caps the categorical frequency list per column.
	TopValues int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations  bool
	IQRMultiplier float64
}

// DefaultProfileOptions returns reasonable defaults for profiling.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, TopValues: 5, IQRMultiplier: 1.5}
}

// Report is a markdown-friendly profile of a dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // storage kind
	Class   Class
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min, Max, Mean, Std float64
	Q1, Median, Q3      float64
	// Tukey outliers
	OutliersCount int
	LowerFence    float64
	UpperFence    float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Profile computes per-column statistics, optional correlations and a head sample.
func Profile(ds *dataset.Dataset, opt ProfileOptions) *Report {
	if opt.IQRMultiplier <= 0 {
		opt.IQRMultiplier = 1.5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: ds.Name(), Rows: ds.Rows()}
	var numeric []*dataset.Column
	for _, c := range ds.Columns() {
		cs := ColumnSummary{
			Name:    c.Name(),
			Kind:    c.Kind().String(),
			Class:   Classify(c),
			Missing: c.NullCount(),
			NonNull: c.Len() - c.NullCount(),
			Unique:  c.Cardinality(),
		}
		if c.IsNumeric() {
			vals := c.Floats()
			if len(vals) > 0 {
				numeric = append(numeric, c)
				cs.Min, cs.Max, _ = stats.MinMax(vals)
				cs.Mean = stats.Mean(vals)
				cs.Std = stats.Std(vals, 1)
				s := stats.Sorted(vals)
				cs.Q1, cs.Median, cs.Q3 = stats.Quantile(s, 0.25), stats.Quantile(s, 0.5), stats.Quantile(s, 0.75)
				if f, ok := stats.TukeyFences(vals, opt.IQRMultiplier); ok {
					cs.LowerFence, cs.UpperFence = f.Lower, f.Upper
					for _, v := range vals {
						if f.Outside(v) {
							cs.OutliersCount++
						}
					}
				}
				if cs.Std == 0 && len(vals) > 1 {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s is constant", c.Name()))
				}
			}
		} else {
			cs.TopValues = topValues(c.Texts(), opt.TopValues)
		}
		if cs.NonNull == 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s is entirely missing", c.Name()))
		}
		rep.Cols = append(rep.Cols, cs)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = correlate(numeric)
	}
	if opt.SampleRows > 0 {
		head := ds.Head(opt.SampleRows)
		for i := 0; i < head.Rows(); i++ {
			rep.Samples = append(rep.Samples, head.Record(i))
		}
	}
	return rep
}

func topValues(vals []string, limit int) []CategoryCount {
	counts := make(map[string]int)
	for _, v := range vals {
		counts[v]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		out = append(out, CategoryCount{Value: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// correlate computes pairwise Pearson r over rows where both columns are present.
func correlate(cols []*dataset.Column) *CorrMatrix {
	m := &CorrMatrix{Columns: make([]string, len(cols)), Values: make([][]float64, len(cols))}
	raw := make([][]float64, len(cols))
	for i, c := range cols {
		m.Columns[i] = c.Name()
		m.Values[i] = make([]float64, len(cols))
		raw[i] = make([]float64, c.Len())
		for r := range raw[i] {
			raw[i][r] = c.Float(r)
		}
	}
	for i := range cols {
		m.Values[i][i] = 1
		for j := i + 1; j < len(cols); j++ {
			x, y := raw[i], raw[j]
			r, ok := stats.Pearson(x, y, func(k int) bool { return !math.IsNaN(x[k]) && !math.IsNaN(y[k]) })
			if !ok {
				r = math.NaN()
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s/%s (non-null %d, missing %.1f%%, unique %d)",
			safeName(c.Name), c.Kind, c.Class, c.NonNull, missPct, c.Unique))
		switch {
		case c.Kind == dataset.Numeric.String() && c.NonNull > 0:
			b.WriteString(fmt.Sprintf(" - min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g, mean %.4g, std %.4g",
				c.Min, c.Q1, c.Median, c.Q3, c.Max, c.Mean, c.Std))
			b.WriteString(fmt.Sprintf("; outliers: %d outside [%.4g, %.4g]", c.OutliersCount, c.LowerFence, c.UpperFence))
		case len(c.TopValues) > 0:
			b.WriteString(" - top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
		}
		b.WriteString("\n")
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if math.IsNaN(r.Corr.Values[i][j]) {
					continue
				}
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
