package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
)

// Class is the analytic role of a column.
type Class int

const (
	Categorical Class = iota
	Numeric
	Datetime
	Identifier
)

func (c Class) String() string {
	switch c {
	case Identifier:
		return "identifier"
	case Numeric:
		return "numeric"
	case Datetime:
		return "datetime"
	default:
		return "categorical"
	}
}

var (
	codePattern      = regexp.MustCompile(`^[A-Za-z]*[0-9]+[A-Za-z]*$`)
	identifierTokens = map[string]struct{}{
		"id": {}, "code": {}, "num": {}, "index": {}, "identifiant": {},
	}
)

// Classify assigns a column its analytic role. It depends only on the column's
// values and name and is total: empty and all-null columns are Categorical.
func Classify(col *dataset.Column) Class {
	if col == nil || col.Len() == 0 || col.NullCount() == col.Len() {
		return Categorical
	}
	if isIdentifier(col) {
		return Identifier
	}
	switch col.Kind() {
	case dataset.Numeric:
		return Numeric
	case dataset.Datetime:
		return Datetime
	default:
		return Categorical
	}
}

func isIdentifier(col *dataset.Column) bool {
	if col.Len() < 2 || col.NullCount() > 0 || col.Cardinality() != col.Len() {
		return false
	}
	if col.IsNumeric() {
		// unique measurements such as age or price stay numeric
		return col.IsInteger() && isStepSequence(col.Floats())
	}
	if col.Kind() == dataset.Categorical && allMatch(col.Texts(), codePattern) {
		return true
	}
	return nameLooksLikeIdentifier(col.Name())
}

func isStepSequence(vals []float64) bool {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	for i := 1; i < len(s); i++ {
		if math.Abs(s[i]-s[i-1]-1) > 1e-9 {
			return false
		}
	}
	return true
}

func allMatch(vals []string, re *regexp.Regexp) bool {
	for _, v := range vals {
		if !re.MatchString(v) {
			return false
		}
	}
	return len(vals) > 0
}

func nameLooksLikeIdentifier(name string) bool {
	for _, tok := range nameTokens(name) {
		if _, ok := identifierTokens[tok]; ok {
			return true
		}
		if _, ok := identifierTokens[inflection.Singular(tok)]; ok {
			return true
		}
	}
	return false
}

// nameTokens splits a column name into lower-cased words on separators,
// letter/digit changes and camelCase humps: "customerIDs_2" -> customer, ids, 2.
func nameTokens(name string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	rs := []rune(name)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]) && !pluralTail(rs[i+1:]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// pluralTail reports a lone lower-case "s" closing an acronym, as in "IDs".
func pluralTail(rest []rune) bool {
	if len(rest) == 0 || rest[0] != 's' {
		return false
	}
	return len(rest) == 1 || !unicode.IsLetter(rest[1]) || unicode.IsUpper(rest[1])
}
