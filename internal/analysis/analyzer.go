// Package analysis inspects datasets: it classifies columns, derives
// preprocessing suggestions and renders descriptive profiles.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/stats"
)

// SuggestionType is the family a suggestion belongs to.
type SuggestionType string

const (
	TypeFiltering       SuggestionType = "Filtering"
	TypeMissingValues   SuggestionType = "MissingValues"
	TypeStandardization SuggestionType = "Standardization"
	TypeNormalization   SuggestionType = "Normalization"
	TypeEncoding        SuggestionType = "Encoding"
	TypeOutlierCleanup  SuggestionType = "OutlierCleanup"
	TypeNoActionNeeded  SuggestionType = "NoActionNeeded"
)

// SuggestionTypes lists every type in evaluation order.
var SuggestionTypes = []SuggestionType{
	TypeFiltering, TypeMissingValues, TypeStandardization, TypeNormalization,
	TypeEncoding, TypeOutlierCleanup, TypeNoActionNeeded,
}

// ParseSuggestionType matches a type name case-insensitively.
func ParseSuggestionType(s string) (SuggestionType, bool) {
	for _, t := range SuggestionTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Action names understood by the transformer.
const (
	ActionNone         = "none"
	ActionExclude      = "exclude"
	ActionImpute       = "impute"
	ActionStandardize  = "standardize"
	ActionNormalize    = "normalize"
	ActionAutoEncode   = "auto-encode"
	ActionDropOutliers = "drop-outliers"
)

// Suggestion is a recommended preprocessing step. It is never applied
// automatically; Columns is the scope the step may touch.
type Suggestion struct {
	Type          SuggestionType `json:"type" yaml:"type"`
	Action        string         `json:"action" yaml:"action"`
	Reason        string         `json:"reason" yaml:"reason"`
	Justification string         `json:"justification" yaml:"justification"`
	Columns       []string       `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Informational reports whether the suggestion carries no transformation.
func (s Suggestion) Informational() bool {
	return s.Action == ActionNone || s.Action == ActionExclude || s.Type == TypeNoActionNeeded
}

// Summary holds the raw signals behind the suggestions.
type Summary struct {
	Rows               int                `json:"rows" yaml:"rows"`
	Columns            int                `json:"columns" yaml:"columns"`
	IdentifierColumns  []string           `json:"identifier_columns" yaml:"identifier_columns"`
	NumericColumns     []string           `json:"numeric_columns" yaml:"numeric_columns"`
	CategoricalColumns []string           `json:"categorical_columns" yaml:"categorical_columns"`
	DatetimeColumns    []string           `json:"datetime_columns" yaml:"datetime_columns"`
	MissingRates       map[string]float64 `json:"missing_rates" yaml:"missing_rates"`
	MissingColumns     []string           `json:"missing_columns" yaml:"missing_columns"`
	MaxMissingRate     float64            `json:"max_missing_rate" yaml:"max_missing_rate"`
	Std                map[string]float64 `json:"std" yaml:"std"`
	StdRatio           float64            `json:"std_ratio" yaml:"std_ratio"`
	GlobalMin          float64            `json:"global_min" yaml:"global_min"`
	GlobalMax          float64            `json:"global_max" yaml:"global_max"`
	Cardinality        map[string]int     `json:"cardinality" yaml:"cardinality"`
	LowCardinality     []string           `json:"low_cardinality" yaml:"low_cardinality"`
	HighCardinality    []string           `json:"high_cardinality" yaml:"high_cardinality"`
	OutlierRates       map[string]float64 `json:"outlier_rates" yaml:"outlier_rates"`
	OutlierRate        float64            `json:"outlier_rate" yaml:"outlier_rate"`
}

// Result is the outcome of one analysis pass.
type Result struct {
	Dataset     string       `json:"dataset" yaml:"dataset"`
	Suggestions []Suggestion `json:"suggestions" yaml:"suggestions"`
	Summary     Summary      `json:"summary" yaml:"summary"`
}

// EmptyDatasetError is returned for datasets without columns or rows.
type EmptyDatasetError struct {
	Name    string
	Rows    int
	Columns int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("dataset %q is empty (%d rows, %d columns)", e.Name, e.Rows, e.Columns)
}

// Options are the heuristic thresholds of the analyzer.
type Options struct {
	// MissingThreshold flags columns whose missing fraction is strictly above it.
	MissingThreshold float64
	// ScaleRatioThreshold compares max(std)/min(std) across numeric columns.
	ScaleRatioThreshold float64
	// UnitScaleMax is the largest value still considered already normalized.
	UnitScaleMax float64
	// CategoryCap is the largest cardinality considered encodable.
	CategoryCap int
	// OutlierRateThreshold flags a mean out-of-fence rate strictly above it.
	OutlierRateThreshold float64
	IQRMultiplier        float64
	MissingMarkers       []string
}

// DefaultOptions returns the canonical thresholds.
func DefaultOptions() Options {
	return Options{
		MissingThreshold:     0.10,
		ScaleRatioThreshold:  10,
		UnitScaleMax:         1.5,
		CategoryCap:          15,
		OutlierRateThreshold: 0.10,
		IQRMultiplier:        1.5,
		MissingMarkers:       append([]string(nil), dataset.DefaultMissingMarkers...),
	}
}

const stdEpsilon = 1e-9

// Analyzer derives suggestions from a dataset. It holds no per-call state and
// is safe for concurrent use.
type Analyzer struct {
	opt Options
	log *zap.Logger
}

// NewAnalyzer builds an analyzer. A nil logger discards output.
func NewAnalyzer(opt Options, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{opt: opt, log: log}
}

// Analyze evaluates identifiers, missing values, numeric scale, categorical
// encoding and outliers, in that order. The input is not modified.
func (a *Analyzer) Analyze(ds *dataset.Dataset) (*Result, error) {
	if ds == nil || ds.Width() == 0 || ds.Rows() == 0 {
		e := &EmptyDatasetError{}
		if ds != nil {
			e.Name, e.Rows, e.Columns = ds.Name(), ds.Rows(), ds.Width()
		}
		return nil, e
	}
	view, _ := ds.NormalizeMissing(a.opt.MissingMarkers)
	res := &Result{Dataset: ds.Name()}
	sum := &res.Summary
	sum.Rows, sum.Columns = view.Rows(), view.Width()

	var numeric, categorical []*dataset.Column
	working := make([]*dataset.Column, 0, view.Width())
	for _, c := range view.Columns() {
		switch Classify(c) {
		case Identifier:
			sum.IdentifierColumns = append(sum.IdentifierColumns, c.Name())
			continue
		case Numeric:
			sum.NumericColumns = append(sum.NumericColumns, c.Name())
			numeric = append(numeric, c)
		case Datetime:
			sum.DatetimeColumns = append(sum.DatetimeColumns, c.Name())
		default:
			sum.CategoricalColumns = append(sum.CategoricalColumns, c.Name())
			categorical = append(categorical, c)
		}
		working = append(working, c)
	}

	if len(sum.IdentifierColumns) > 0 {
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:   TypeFiltering,
			Action: ActionExclude,
			Reason: fmt.Sprintf("%d identifier-like column(s) excluded from analysis: %s.",
				len(sum.IdentifierColumns), strings.Join(sum.IdentifierColumns, ", ")),
			Justification: "Unique codes or step-1 sequences identify rows rather than carry signal; they are kept in the data but never scaled or encoded.",
			Columns:       sum.IdentifierColumns,
		})
	}

	emitted := len(res.Suggestions)
	a.missingSignal(res, working)
	a.scaleSignal(res, numeric)
	a.categoricalSignal(res, categorical)
	a.outlierSignal(res, numeric)
	if len(res.Suggestions) == emitted {
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:          TypeNoActionNeeded,
			Action:        ActionNone,
			Reason:        "The dataset looks clean and well formatted.",
			Justification: "No missing-value, scale, encoding or outlier signal crossed its threshold.",
		})
	}
	a.log.Debug("dataset analyzed",
		zap.String("dataset", ds.Name()),
		zap.Int("rows", sum.Rows),
		zap.Int("columns", sum.Columns),
		zap.Int("suggestions", len(res.Suggestions)))
	return res, nil
}

func (a *Analyzer) missingSignal(res *Result, cols []*dataset.Column) {
	sum := &res.Summary
	sum.MissingRates = make(map[string]float64, len(cols))
	for _, c := range cols {
		r := c.MissingFraction()
		sum.MissingRates[c.Name()] = r
		if r > a.opt.MissingThreshold {
			sum.MissingColumns = append(sum.MissingColumns, c.Name())
			if r > sum.MaxMissingRate {
				sum.MaxMissingRate = r
			}
		}
	}
	if len(sum.MissingColumns) == 0 {
		return
	}
	res.Suggestions = append(res.Suggestions, Suggestion{
		Type:   TypeMissingValues,
		Action: ActionImpute,
		Reason: fmt.Sprintf("%d column(s) have more than %s missing values (max %s).",
			len(sum.MissingColumns), pct(a.opt.MissingThreshold), pct(sum.MaxMissingRate)),
		Justification: "Impute numeric columns with the mean, datetimes with the median and other columns with the mode; columns at least half empty are dropped.",
		Columns:       sum.MissingColumns,
	})
}

func (a *Analyzer) scaleSignal(res *Result, numeric []*dataset.Column) {
	sum := &res.Summary
	sum.Std = make(map[string]float64, len(numeric))
	var (
		targets  []string
		stds     []float64
		lo, hi   = math.Inf(1), math.Inf(-1)
		hasRange bool
	)
	for _, c := range numeric {
		vals := c.Floats()
		if len(vals) == 0 {
			continue
		}
		sd := stats.Std(vals, 1)
		sum.Std[c.Name()] = sd
		stds = append(stds, sd)
		targets = append(targets, c.Name())
		if mn, mx, ok := stats.MinMax(vals); ok {
			lo, hi, hasRange = math.Min(lo, mn), math.Max(hi, mx), true
		}
	}
	if len(stds) == 0 {
		return
	}
	if hasRange {
		sum.GlobalMin, sum.GlobalMax = lo, hi
	}

	standardize := false
	if len(stds) >= 2 {
		mn, mx, _ := stats.MinMax(stds)
		sum.StdRatio = mx / (mn + stdEpsilon)
		standardize = sum.StdRatio > a.opt.ScaleRatioThreshold
	} else {
		// a single column has no dispersion ratio
		standardize = lo < 0 || hi > a.opt.UnitScaleMax
	}

	switch {
	case standardize:
		reason := fmt.Sprintf("Numeric scales differ widely (std ratio %.1f > %.0f).", sum.StdRatio, a.opt.ScaleRatioThreshold)
		if len(stds) == 1 {
			reason = fmt.Sprintf("Single numeric column spans [%.4g, %.4g].", lo, hi)
		}
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:          TypeStandardization,
			Action:        ActionStandardize,
			Reason:        reason,
			Justification: "Z-score scaling puts every numeric column on zero mean and unit variance.",
			Columns:       targets,
		})
	case lo >= 0 && hi > a.opt.UnitScaleMax:
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:          TypeNormalization,
			Action:        ActionNormalize,
			Reason:        fmt.Sprintf("Non-negative values reach %.4g.", hi),
			Justification: "Min-Max scaling maps each numeric column onto [0,1].",
			Columns:       targets,
		})
	case lo >= 0:
		res.Suggestions = append(res.Suggestions, Suggestion{
			Type:          TypeNormalization,
			Action:        ActionNone,
			Reason:        "Values already lie in [0,1]; no normalization needed.",
			Justification: fmt.Sprintf("Global range [%.4g, %.4g] is within the unit scale.", lo, hi),
			Columns:       targets,
		})
	}
}

func (a *Analyzer) categoricalSignal(res *Result, cols []*dataset.Column) {
	sum := &res.Summary
	sum.Cardinality = make(map[string]int, len(cols))
	var targets []string
	for _, c := range cols {
		n := c.Cardinality()
		sum.Cardinality[c.Name()] = n
		if n == 0 {
			continue
		}
		targets = append(targets, c.Name())
		if n <= a.opt.CategoryCap {
			sum.LowCardinality = append(sum.LowCardinality, c.Name())
		} else {
			sum.HighCardinality = append(sum.HighCardinality, c.Name())
		}
	}
	if len(sum.LowCardinality) == 0 {
		return
	}
	just := "One-hot encode columns with at most 10 categories, label encode the rest."
	if len(sum.HighCardinality) > 0 {
		just += fmt.Sprintf(" High-cardinality columns: %s.", strings.Join(sum.HighCardinality, ", "))
	}
	res.Suggestions = append(res.Suggestions, Suggestion{
		Type:          TypeEncoding,
		Action:        ActionAutoEncode,
		Reason:        fmt.Sprintf("%d categorical column(s) with at most %d categories.", len(sum.LowCardinality), a.opt.CategoryCap),
		Justification: just,
		Columns:       targets,
	})
}

func (a *Analyzer) outlierSignal(res *Result, numeric []*dataset.Column) {
	sum := &res.Summary
	sum.OutlierRates = make(map[string]float64, len(numeric))
	var (
		total   float64
		counted int
		targets []string
	)
	for _, c := range numeric {
		vals := c.Floats()
		f, ok := stats.TukeyFences(vals, a.opt.IQRMultiplier)
		if !ok {
			continue
		}
		out := 0
		for _, v := range vals {
			if f.Outside(v) {
				out++
			}
		}
		r := float64(out) / float64(c.Len())
		sum.OutlierRates[c.Name()] = r
		total += r
		counted++
		targets = append(targets, c.Name())
	}
	if counted == 0 {
		return
	}
	sum.OutlierRate = total / float64(counted)
	if sum.OutlierRate <= a.opt.OutlierRateThreshold {
		return
	}
	res.Suggestions = append(res.Suggestions, Suggestion{
		Type:          TypeOutlierCleanup,
		Action:        ActionDropOutliers,
		Reason:        fmt.Sprintf("%s of numeric values lie outside the Tukey fences.", pct(sum.OutlierRate)),
		Justification: fmt.Sprintf("Remove or winsorize values beyond Q1-%.1f*IQR and Q3+%.1f*IQR.", a.opt.IQRMultiplier, a.opt.IQRMultiplier),
		Columns:       targets,
	})
}

// Markdown renders the suggestions as a table followed by the key signals.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[SUGGESTIONS]\n")
	if r.Dataset != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Dataset))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n\n", r.Summary.Rows, r.Summary.Columns))
	b.WriteString("| # | Type | Action | Reason | Columns |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for i, s := range r.Suggestions {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, s.Type, s.Action, safeVal(s.Reason), safeVal(strings.Join(s.Columns, ", "))))
	}

	b.WriteString("\n[SIGNALS]\n")
	s := r.Summary
	if len(s.IdentifierColumns) > 0 {
		b.WriteString(fmt.Sprintf("- identifiers: %s\n", strings.Join(s.IdentifierColumns, ", ")))
	}
	b.WriteString(fmt.Sprintf("- numeric: %d, categorical: %d, datetime: %d\n",
		len(s.NumericColumns), len(s.CategoricalColumns), len(s.DatetimeColumns)))
	if len(s.MissingColumns) > 0 {
		b.WriteString(fmt.Sprintf("- missing above threshold: %s (max %s)\n", strings.Join(s.MissingColumns, ", "), pct(s.MaxMissingRate)))
	}
	if s.StdRatio > 0 {
		b.WriteString(fmt.Sprintf("- std ratio: %.2f\n", s.StdRatio))
	}
	if len(s.Std) > 0 {
		b.WriteString(fmt.Sprintf("- numeric range: [%.4g, %.4g]\n", s.GlobalMin, s.GlobalMax))
	}
	if len(s.HighCardinality) > 0 {
		b.WriteString(fmt.Sprintf("- high cardinality: %s\n", strings.Join(s.HighCardinality, ", ")))
	}
	if len(s.OutlierRates) > 0 {
		b.WriteString(fmt.Sprintf("- outlier rate: %s\n", pct(s.OutlierRate)))
	}
	b.WriteString("\n[JUSTIFICATIONS]\n")
	for i, sg := range r.Suggestions {
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, sg.Type, sg.Justification))
	}
	return b.String()
}

func pct(f float64) string { return fmt.Sprintf("%.1f%%", f*100) }

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
