package dataset

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReadOptions controls parsing of delimited and spreadsheet sources.
type ReadOptions struct {
	// Delimiter for CSV. If 0, sniffed from the extension and the header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Encoding of the source bytes: utf-8 (default), latin1/iso-8859-1, windows-1252.
	Encoding string
}

// DefaultReadOptions returns auto-detecting, unlimited options.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Encoding: "utf-8"}
}

var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
}

// IsNullToken reports whether a raw cell reads as missing.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

var (
	integerLiteral = regexp.MustCompile(`^[+-]?[0-9]+$`)
	timeLayouts    = []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
)

// FromRecords builds a dataset from a header and text rows, inferring each
// column's kind. Short rows are padded with missing cells.
func FromRecords(name string, header []string, rows [][]string, opt ReadOptions) (*Dataset, error) {
	names := dedupeHeader(header)
	cells := make([][]string, len(names))
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, rec := range rows {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+2, len(names), len(rec))
		}
		for j, v := range rec {
			cells[j][i] = v
		}
	}
	cols := make([]*Column, len(names))
	for j, n := range names {
		cols[j] = InferColumn(n, cells[j], opt)
	}
	d, err := New(name, cols...)
	if err != nil {
		return nil, err
	}
	d.opt = opt
	return d, nil
}

// InferColumn picks the narrowest kind every non-null cell satisfies:
// numeric, then boolean, then datetime, else categorical.
func InferColumn(name string, cells []string, opt ReadOptions) *Column {
	null := make([]bool, len(cells))
	present := 0
	for i, s := range cells {
		if IsNullToken(s) {
			null[i] = true
			continue
		}
		present++
	}
	if present == 0 {
		return NewTextNullable(name, cells, null)
	}
	if c, ok := inferNumeric(name, cells, null, opt); ok {
		return c
	}
	if c, ok := inferBoolean(name, cells, null); ok {
		return c
	}
	if c, ok := inferDatetime(name, cells, null); ok {
		return c
	}
	vals := make([]string, len(cells))
	for i, s := range cells {
		if !null[i] {
			vals[i] = strings.TrimSpace(s)
		}
	}
	return NewTextNullable(name, vals, null)
}

func inferNumeric(name string, cells []string, null []bool, opt ReadOptions) (*Column, bool) {
	vals := make([]float64, len(cells))
	integer := true
	for i, s := range cells {
		if null[i] {
			vals[i] = math.NaN()
			continue
		}
		f, ok := parseNumeric(s, opt)
		if !ok {
			return nil, false
		}
		if !integerLiteral.MatchString(strings.TrimSpace(s)) {
			integer = false
		}
		vals[i] = f
	}
	if integer {
		return NewInteger(name, vals...), true
	}
	return NewNumeric(name, vals...), true
}

func inferBoolean(name string, cells []string, null []bool) (*Column, bool) {
	vals := make([]bool, len(cells))
	for i, s := range cells {
		if null[i] {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			vals[i] = true
		case "false":
		default:
			return nil, false
		}
	}
	return NewBoolean(name, vals, null), true
}

func inferDatetime(name string, cells []string, null []bool) (*Column, bool) {
	vals := make([]time.Time, len(cells))
	layout := ""
	mixed := false
	for i, s := range cells {
		if null[i] {
			continue
		}
		t, l, ok := parseTimeMaybe(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		if layout == "" {
			layout = l
		} else if l != layout {
			mixed = true
		}
		vals[i] = t
	}
	if mixed {
		layout = time.RFC3339
	}
	return NewDatetime(name, layout, vals, null), true
}

func parseTimeMaybe(s string) (time.Time, string, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, l, true
		}
	}
	return time.Time{}, "", false
}

func parseNumeric(s string, opt ReadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// dedupeHeader names blank headers "Unnamed: i" and suffixes repeats ".1", ".2".
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		base := n
		for {
			if _, dup := seen[n]; !dup {
				break
			}
			seen[base]++
			n = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[n] = 0
		out[i] = n
	}
	return out
}
