package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
)

func analyze(t *testing.T, ds *dataset.Dataset) *Result {
	t.Helper()
	res, err := NewAnalyzer(DefaultOptions(), zap.NewNop()).Analyze(ds)
	require.NoError(t, err)
	return res
}

func types(res *Result) []SuggestionType {
	out := make([]SuggestionType, len(res.Suggestions))
	for i, s := range res.Suggestions {
		out[i] = s.Type
	}
	return out
}

func find(res *Result, typ SuggestionType) (Suggestion, bool) {
	for _, s := range res.Suggestions {
		if s.Type == typ {
			return s, true
		}
	}
	return Suggestion{}, false
}

func TestAnalyzeEmptyDataset(t *testing.T) {
	a := NewAnalyzer(DefaultOptions(), nil)

	_, err := a.Analyze(dataset.MustNew("none"))
	var empty *EmptyDatasetError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "none", empty.Name)

	_, err = a.Analyze(dataset.MustNew("norows", dataset.NewNumeric("x")))
	assert.True(t, errors.As(err, &empty))
}

func TestAnalyzeEndToEndSuggestions(t *testing.T) {
	ds := dataset.MustNew("shop",
		dataset.NewInteger("id", 1, 2, 3),
		dataset.NewNumeric("price", 10, 1000, math.NaN()),
		dataset.NewText("category", "a", "b", "a"),
	)
	before := ds.Record(1)

	res := analyze(t, ds)
	assert.Equal(t, []SuggestionType{TypeFiltering, TypeMissingValues, TypeStandardization, TypeEncoding}, types(res))

	filt := res.Suggestions[0]
	assert.Equal(t, ActionExclude, filt.Action)
	assert.Equal(t, []string{"id"}, filt.Columns)

	miss := res.Suggestions[1]
	assert.Equal(t, []string{"price"}, miss.Columns)
	assert.Contains(t, miss.Reason, "33.3%")

	assert.Equal(t, []string{"price"}, res.Suggestions[2].Columns)
	assert.Equal(t, ActionAutoEncode, res.Suggestions[3].Action)
	assert.Equal(t, []string{"category"}, res.Suggestions[3].Columns)

	assert.Equal(t, []string{"id"}, res.Summary.IdentifierColumns)
	assert.Equal(t, 2, res.Summary.Cardinality["category"])
	assert.Equal(t, 0.0, res.Summary.OutlierRate)

	assert.Equal(t, before, ds.Record(1))
	assert.Equal(t, 3, ds.Width())
}

func TestAnalyzeScaleSignals(t *testing.T) {
	cases := []struct {
		name   string
		a, b   []float64
		want   SuggestionType
		action string
	}{
		{"wide std ratio", []float64{0, 1, 2}, []float64{0, 50, 100}, TypeStandardization, ActionStandardize},
		{"already unit scale", []float64{0, 0.1, 0.2}, []float64{0, 0.5, 1}, TypeNormalization, ActionNone},
		{"positive range", []float64{0, 10, 20}, []float64{0, 30, 60}, TypeNormalization, ActionNormalize},
		{"negative values", []float64{-1, 0, 1}, []float64{-2, 0, 2}, TypeNoActionNeeded, ActionNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := analyze(t, dataset.MustNew("s", dataset.NewNumeric("a", tc.a...), dataset.NewNumeric("b", tc.b...)))
			require.Len(t, res.Suggestions, 1, "%v", types(res))
			assert.Equal(t, tc.want, res.Suggestions[0].Type)
			assert.Equal(t, tc.action, res.Suggestions[0].Action)
		})
	}

	res := analyze(t, dataset.MustNew("s", dataset.NewNumeric("a", 0, 1, 2), dataset.NewNumeric("b", 0, 50, 100)))
	assert.InDelta(t, 50.0, res.Summary.StdRatio, 1e-6)
}

func TestAnalyzeMissingThresholdIsStrict(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, math.NaN()}
	res := analyze(t, dataset.MustNew("m", dataset.NewNumeric("v", vals...), dataset.NewNumeric("w", 1, 0, 1, 0, 1, 0, 1, 0, 1, 0)))
	_, ok := find(res, TypeMissingValues)
	assert.False(t, ok, "exactly ten percent missing must not fire")

	vals[8] = math.NaN()
	res = analyze(t, dataset.MustNew("m", dataset.NewNumeric("v", vals...), dataset.NewNumeric("w", 1, 0, 1, 0, 1, 0, 1, 0, 1, 0)))
	s, ok := find(res, TypeMissingValues)
	require.True(t, ok)
	assert.Contains(t, s.Reason, "1 column(s)")
	assert.InDelta(t, 0.2, res.Summary.MaxMissingRate, 1e-12)
}

func TestAnalyzeOutlierThresholdIsStrict(t *testing.T) {
	column := func(outliers ...float64) *dataset.Column {
		vals := make([]float64, 0, 20)
		for len(vals) < 20-len(outliers) {
			vals = append(vals, 10)
		}
		return dataset.NewNumeric("v", append(vals, outliers...)...)
	}

	res := analyze(t, dataset.MustNew("o", column(100, 200, 300)))
	s, ok := find(res, TypeOutlierCleanup)
	require.True(t, ok, "fifteen percent outside the fences fires")
	assert.Equal(t, ActionDropOutliers, s.Action)
	assert.Contains(t, s.Reason, "15.0%")

	res = analyze(t, dataset.MustNew("o", column(100, 200)))
	_, ok = find(res, TypeOutlierCleanup)
	assert.False(t, ok, "exactly ten percent does not fire")
	assert.InDelta(t, 0.10, res.Summary.OutlierRate, 1e-12)
}

func TestAnalyzeAllNullColumnIsNeutral(t *testing.T) {
	res := analyze(t, dataset.MustNew("n",
		dataset.NewNumeric("empty", math.NaN(), math.NaN(), math.NaN()),
		dataset.NewNumeric("a", 0.1, 0.2, 0.3),
	))
	_, ok := find(res, TypeStandardization)
	assert.False(t, ok)
	_, has := res.Summary.OutlierRates["empty"]
	assert.False(t, has)
}

func TestAnalyzeEncodingListsHighCardinality(t *testing.T) {
	n := 20
	notes := make([]string, n)
	colors := make([]string, n)
	for i := range notes {
		notes[i] = fmt.Sprintf("note %c%c", 'a'+i%26, 'a'+i/26)
		colors[i] = []string{"red", "blue"}[i%2]
	}
	res := analyze(t, dataset.MustNew("c", dataset.NewText("color", colors...), dataset.NewText("comment", notes...)))
	s, ok := find(res, TypeEncoding)
	require.True(t, ok)
	assert.Equal(t, []string{"color", "comment"}, s.Columns)
	assert.Contains(t, s.Reason, "1 categorical column(s)")
	assert.Contains(t, s.Justification, "comment")
	assert.Equal(t, []string{"comment"}, res.Summary.HighCardinality)
}

func TestAnalyzeTreatsPlaceholdersAsMissing(t *testing.T) {
	ds, err := dataset.FromRecords("q", []string{"age", "city"}, [][]string{
		{"31", "Paris"}, {"?", "Lyon"}, {"45", "Paris"}, {"52", "Lyon"},
	}, dataset.DefaultReadOptions())
	require.NoError(t, err)

	res := analyze(t, ds)
	assert.Equal(t, []string{"age"}, res.Summary.NumericColumns)
	assert.InDelta(t, 0.25, res.Summary.MissingRates["age"], 1e-12)
	_, ok := find(res, TypeMissingValues)
	assert.True(t, ok)
}

func TestResultSerializes(t *testing.T) {
	res := analyze(t, dataset.MustNew("shop",
		dataset.NewInteger("id", 1, 2, 3),
		dataset.NewText("category", "a", "b", "a"),
	))

	js, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"type":"Filtering"`)

	ys, err := yaml.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(ys), "type: Encoding")

	md := res.Markdown()
	assert.True(t, strings.HasPrefix(md, "[SUGGESTIONS]\n"))
	assert.Contains(t, md, "| 1 | Filtering | exclude |")
	assert.Contains(t, md, "- identifiers: id")
}

func TestParseSuggestionType(t *testing.T) {
	typ, ok := ParseSuggestionType("outliercleanup")
	require.True(t, ok)
	assert.Equal(t, TypeOutlierCleanup, typ)
	_, ok = ParseSuggestionType("bogus")
	assert.False(t, ok)
}
