package transform

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/stats"
)

func newTransformer() *Transformer {
	return New(DefaultOptions(), zap.NewNop())
}

func TestHandleMissingIsIdempotent(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("m",
		dataset.NewNumeric("price", 10, 1000, math.NaN()),
		dataset.NewTextNullable("color", []string{"red", "", "blue"}, []bool{false, true, false}),
		dataset.NewNumeric("sparse", math.NaN(), math.NaN(), 1),
	)

	out, changed := tr.HandleMissing(ds)
	require.True(t, changed)
	assert.Equal(t, []string{"price", "color"}, out.Names(), "columns at least half empty are dropped")
	assert.Equal(t, 3, out.Rows())
	price, _ := out.Column("price")
	assert.InDelta(t, 505.0, price.Float(2), 1e-9)
	color, _ := out.Column("color")
	assert.Equal(t, "blue", color.Text(1), "mode ties resolve to the smallest value")

	again, changed := tr.HandleMissing(out)
	assert.False(t, changed)
	assert.Same(t, out, again)

	// input untouched
	assert.Equal(t, 3, ds.Width())
	orig, _ := ds.Column("price")
	assert.True(t, orig.IsNull(2))
}

func TestHandleMissingNormalizesPlaceholders(t *testing.T) {
	tr := newTransformer()
	ds, err := dataset.FromRecords("q", []string{"age", "city"}, [][]string{
		{"30", "Paris"}, {"?", "Lyon"}, {"40", "Paris"}, {"50", " "},
	}, dataset.DefaultReadOptions())
	require.NoError(t, err)

	out, changed := tr.HandleMissing(ds)
	require.True(t, changed)
	age, _ := out.Column("age")
	require.Equal(t, dataset.Numeric, age.Kind())
	assert.Equal(t, "40", age.Text(1))
	city, _ := out.Column("city")
	assert.Equal(t, "Paris", city.Text(3))
}

func TestHandleMissingDatetimeMedian(t *testing.T) {
	tr := newTransformer()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	ds := dataset.MustNew("d",
		dataset.NewDatetime("when", "2006-01-02", []time.Time{day(1), day(3), {}, day(9)}, []bool{false, false, true, false}),
	)
	out, changed := tr.HandleMissing(ds)
	require.True(t, changed)
	when, _ := out.Column("when")
	assert.Equal(t, "2024-01-03", when.Text(2))
}

func TestHandleMissingCleanDataIsNoOp(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("c", dataset.NewNumeric("x", 1, 2))
	out, changed := tr.HandleMissing(ds)
	assert.False(t, changed)
	assert.Same(t, ds, out)
}

func TestHandleMissingImputesWithReadLocale(t *testing.T) {
	opt := dataset.DefaultReadOptions()
	opt.DecimalSeparator, opt.ThousandsSeparator = '.', ','
	ds, err := dataset.ReadCSV(strings.NewReader("amount,clean\n\"1,234\",\"1,234\"\n?,\"2,000\"\n\"2,500\",\"3,000\"\n"), "money", opt)
	require.NoError(t, err)

	out, changed := newTransformer().HandleMissing(ds)
	require.True(t, changed)
	amount, _ := out.Column("amount")
	require.True(t, amount.IsNumeric())
	assert.Equal(t, []float64{1234, 1867, 2500}, amount.Floats())
}

func TestHandleMissingKeepsDatasetWhenEveryColumnIsSparse(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("s",
		dataset.NewNumeric("a", math.NaN(), math.NaN(), 1),
		dataset.NewNumeric("b", 2, math.NaN(), math.NaN()),
	)
	out, changed := tr.HandleMissing(ds)
	assert.False(t, changed)
	assert.Same(t, ds, out)
	assert.Equal(t, 3, out.Rows())

	_, _, err := tr.Apply(ds, ActionImpute, nil)
	require.ErrorIs(t, err, ErrNoColumnsLeft)
}

func TestNormalize(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("n",
		dataset.NewNumeric("a", 10, 20, math.NaN(), 30),
		dataset.NewNumeric("flat", 4, 4, 4, 4),
		dataset.NewText("s", "x", "y", "z", "w"),
	)
	out, changed := tr.Normalize(ds)
	require.True(t, changed)
	a, _ := out.Column("a")
	assert.Equal(t, []float64{0, 0.5, 1}, a.Floats())
	assert.True(t, a.IsNull(2))
	flat, _ := out.Column("flat")
	assert.Equal(t, []float64{0, 0, 0, 0}, flat.Floats())

	again, changed := tr.Normalize(out)
	assert.False(t, changed)
	assert.Same(t, out, again)

	text := dataset.MustNew("t", dataset.NewText("s", "x"))
	same, changed := tr.Normalize(text)
	assert.False(t, changed)
	assert.Same(t, text, same)
}

func TestStandardize(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("s",
		dataset.NewNumeric("a", 2, 4, 4, 4, 5, 5, 7, 9),
		dataset.NewNumeric("flat", 3, 3, 3, 3, 3, 3, 3, 3),
		dataset.NewNumeric("keep", 1, 2, 3, 4, 5, 6, 7, 8),
	)
	out, changed := tr.Standardize(ds, "a", "flat")
	require.True(t, changed)
	a, _ := out.Column("a")
	assert.InDelta(t, 0, stats.Mean(a.Floats()), 1e-12)
	assert.InDelta(t, 1, stats.Std(a.Floats(), 0), 1e-12)
	assert.InDelta(t, -1.5, a.Float(0), 1e-12)
	flat, _ := out.Column("flat")
	for _, v := range flat.Floats() {
		assert.Equal(t, 0.0, v)
	}
	keep, _ := out.Column("keep")
	orig, _ := ds.Column("keep")
	assert.Same(t, orig, keep)

	again, changed := tr.Standardize(out, "a", "flat")
	assert.False(t, changed)
	assert.Same(t, out, again)
}

func TestFilterByVariance(t *testing.T) {
	tr := newTransformer()
	spread := func(name string, variance float64) *dataset.Column {
		s := math.Sqrt(variance)
		return dataset.NewNumeric(name, -s, s, -s, s)
	}
	ds := dataset.MustNew("v",
		spread("tiny", 0.001),
		spread("mid", 0.5),
		spread("big", 5.0),
		dataset.NewText("label", "a", "a", "a", "a"),
	)
	out, changed := tr.FilterByVariance(ds, 0.01)
	require.True(t, changed)
	assert.Equal(t, []string{"mid", "big", "label"}, out.Names())
	for _, n := range out.Names() {
		got, _ := out.Column(n)
		want, _ := ds.Column(n)
		assert.Same(t, want, got, n)
	}

	again, changed := tr.FilterByVariance(out, 0.01)
	assert.False(t, changed)
	assert.Same(t, out, again)

	scoped, changed := tr.FilterByVariance(ds, 1.0, "mid")
	require.True(t, changed)
	assert.Equal(t, []string{"tiny", "big", "label"}, scoped.Names(), "only scoped columns are considered")

	out, changed, err := tr.Apply(ds, ActionVariance, []string{"big"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Same(t, ds, out)

	noNumeric := dataset.MustNew("t", dataset.NewText("s", "x"))
	_, changed = tr.FilterByVariance(noNumeric, 0.01)
	assert.False(t, changed)
}

func TestEncodeOneHotAndLabel(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("e",
		dataset.NewInteger("id", 1, 2, 3),
		dataset.NewTextNullable("color", []string{"red", "blue", ""}, []bool{false, false, true}),
		dataset.NewNumeric("price", 1, 2, 3),
	)

	hot, changed := tr.Encode(ds, EncodeOneHot)
	require.True(t, changed)
	assert.Equal(t, []string{"id", "color_blue", "color_red", "price"}, hot.Names())
	blue, _ := hot.Column("color_blue")
	red, _ := hot.Column("color_red")
	assert.True(t, blue.IsInteger())
	assert.Equal(t, []float64{0, 1, 0}, blue.Floats())
	assert.Equal(t, []float64{1, 0, 0}, red.Floats())

	_, changed = tr.Encode(hot, EncodeOneHot)
	assert.False(t, changed, "nothing categorical left")

	lab, changed := tr.Encode(ds, EncodeLabel)
	require.True(t, changed)
	color, _ := lab.Column("color")
	assert.Equal(t, "1", color.Text(0))
	assert.Equal(t, "0", color.Text(1))
	assert.True(t, color.IsNull(2))
}

func TestEncodeAutoByCardinality(t *testing.T) {
	tr := newTransformer()
	many := make([]string, 12)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	few := []string{"x", "y", "x", "y", "x", "y", "x", "y", "x", "y", "x", "y"}
	ds := dataset.MustNew("a", dataset.NewText("many", many...), dataset.NewText("few", few...))

	out, changed := tr.Encode(ds, EncodeAuto)
	require.True(t, changed)
	assert.Equal(t, []string{"many", "few_x", "few_y"}, out.Names())
	m, _ := out.Column("many")
	assert.True(t, m.IsInteger())
	assert.Equal(t, 11.0, m.Float(11))
}

func TestEncodeAvoidsNameCollisions(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("c",
		dataset.NewText("c", "a", "b"),
		dataset.NewNumeric("c_a", 1, 2),
	)
	out, changed := tr.Encode(ds, EncodeOneHot)
	require.True(t, changed)
	assert.Equal(t, []string{"c_a.1", "c_b", "c_a"}, out.Names())
}

func TestOutlierRemovalAndClipping(t *testing.T) {
	tr := newTransformer()
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 100}
	ds := dataset.MustNew("o",
		dataset.NewNumeric("v", vals...),
		dataset.NewText("tag", "a", "b", "c", "d", "e", "f", "g", "h", "i"),
	)

	dropped, changed := tr.DropOutliers(ds)
	require.True(t, changed)
	assert.Equal(t, 8, dropped.Rows())

	clipped, changed := tr.ClipOutliers(ds, "v")
	require.True(t, changed)
	v, _ := clipped.Column("v")
	assert.Equal(t, 9, clipped.Rows())
	assert.InDelta(t, 13.0, v.Float(8), 1e-9)

	_, changed = tr.DropOutliers(dataset.MustNew("c", dataset.NewNumeric("v", 1, 2, 3)))
	assert.False(t, changed)
}

func TestDropColumns(t *testing.T) {
	tr := newTransformer()
	ds := dataset.MustNew("d", dataset.NewInteger("id", 1, 2), dataset.NewNumeric("x", 1, 2))
	out, changed := tr.DropColumns(ds, "id", "ghost")
	require.True(t, changed)
	assert.Equal(t, []string{"x"}, out.Names())

	_, changed = tr.DropColumns(ds, "ghost")
	assert.False(t, changed)
}
