package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCSVSniffsSemicolonAndLocale(t *testing.T) {
	src := strings.Join([]string{
		"Group;Score;LocaleNumber;When",
		"A;10,0;1.000,0;2024-01-05",
		"B;9,5;0.900,0;2024-02-01",
		"A;;1.100,0;",
	}, "\n")
	d, err := ReadCSV(strings.NewReader(src), "sample.csv", DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, d.Rows())
	assert.Equal(t, []string{"Group", "Score", "LocaleNumber", "When"}, d.Names())

	score, _ := d.Column("Score")
	require.Equal(t, Numeric, score.Kind())
	assert.InDelta(t, 9.5, score.Float(1), 1e-9)
	assert.True(t, score.IsNull(2))

	loc, _ := d.Column("LocaleNumber")
	assert.InDelta(t, 1100.0, loc.Float(2), 1e-9)

	when, _ := d.Column("When")
	assert.Equal(t, Datetime, when.Kind())
	assert.Equal(t, "2024-02-01", when.Text(1))
}

func TestReadCSVMaxRowsAndShortRows(t *testing.T) {
	src := "a,b\n1,x\n2\n3,z\n4,w\n"
	opt := DefaultReadOptions()
	opt.MaxRows = 3
	d, err := ReadCSV(strings.NewReader(src), "s", opt)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Rows())
	b, _ := d.Column("b")
	assert.True(t, b.IsNull(1))
}

func TestReadCSVRejectsLongRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), "s", DefaultReadOptions())
	require.Error(t, err)
}

func TestReadCSVEmptyInput(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(""), "empty.csv", DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Width())
	assert.Equal(t, 0, d.Rows())
}

func TestReadCSVDecodesLatin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String("ville,pop\nMontréal,3\nQuébec,1\n")
	require.NoError(t, err)
	opt := DefaultReadOptions()
	opt.Encoding = "latin1"
	d, err := ReadCSV(strings.NewReader(raw), "v.csv", opt)
	require.NoError(t, err)
	ville, _ := d.Column("ville")
	assert.Equal(t, "Montréal", ville.Text(0))

	opt.Encoding = "ebcdic"
	_, err = ReadCSV(strings.NewReader(raw), "v.csv", opt)
	assert.Error(t, err)
}

func TestReadCSVStripsUTF8BOM(t *testing.T) {
	d, err := ReadCSV(strings.NewReader("\ufeffid,v\n1,2\n"), "b.csv", DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v"}, d.Names())
}

func TestLoadCSVTabByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1,5\t2\n"), 0o644))
	d, err := Load(path, DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "data.tsv", d.Name())
	a, _ := d.Column("a")
	assert.InDelta(t, 1.5, a.Float(0), 1e-9)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	d, err := ReadCSV(strings.NewReader("id,price,flag,when\n1,10,true,2024-01-02\n2,,false,\n"), "r", DefaultReadOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, d))
	assert.Equal(t, "id,price,flag,when\n1,10,true,2024-01-02\n2,,false,\n", buf.String())

	again, err := ReadCSV(&buf, "r", DefaultReadOptions())
	require.NoError(t, err)
	for _, n := range d.Names() {
		a, _ := d.Column(n)
		b, _ := again.Column(n)
		assert.Equal(t, a.Kind(), b.Kind(), n)
	}
}
