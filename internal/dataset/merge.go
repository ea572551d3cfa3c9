package dataset

import (
	"strings"
)

// MergeKind names the strategy Merge picked.
type MergeKind string

const (
	MergeConcat MergeKind = "concat"
	MergeJoin   MergeKind = "join"
)

// MergeInfo describes how two datasets were fused.
type MergeInfo struct {
	Kind MergeKind `json:"kind" yaml:"kind"`
	Key  string    `json:"key,omitempty" yaml:"key,omitempty"`
	Rows int       `json:"rows" yaml:"rows"`
	// Duplicates is the number of identical rows removed after fusing.
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}

// Merge fuses two datasets. Identical column sets are stacked vertically;
// otherwise the datasets are inner-joined on the first column of a that b also
// has, suffixing other shared columns with _x and _y. Duplicate rows are
// removed and column kinds re-inferred.
func Merge(a, b *Dataset) (*Dataset, MergeInfo, error) {
	var (
		header []string
		rows   [][]string
		info   MergeInfo
	)
	if sameColumnSet(a, b) {
		info.Kind = MergeConcat
		header = a.Names()
		rows = make([][]string, 0, a.Rows()+b.Rows())
		for i := 0; i < a.Rows(); i++ {
			rows = append(rows, a.Record(i))
		}
		order := make([]int, len(header))
		for j, n := range header {
			order[j] = b.Index(n)
		}
		for i := 0; i < b.Rows(); i++ {
			rec := b.Record(i)
			row := make([]string, len(order))
			for j, k := range order {
				row[j] = rec[k]
			}
			rows = append(rows, row)
		}
	} else {
		key := ""
		for _, n := range a.Names() {
			if b.Index(n) >= 0 {
				key = n
				break
			}
		}
		if key == "" {
			return nil, MergeInfo{}, ErrNoCommonColumns
		}
		info.Kind, info.Key = MergeJoin, key
		header, rows = innerJoin(a, b, key)
	}

	unique, dups := dedupeRows(rows)
	info.Duplicates = dups
	info.Rows = len(unique)
	// cells rendered from typed columns are plain numbers, so infer with defaults
	out, err := FromRecords(a.Name(), header, unique, DefaultReadOptions())
	if err != nil {
		return nil, MergeInfo{}, err
	}
	return out.WithReadOptions(a.ReadOptions()), info, nil
}

func sameColumnSet(a, b *Dataset) bool {
	if a.Width() != b.Width() {
		return false
	}
	for _, n := range a.Names() {
		if b.Index(n) < 0 {
			return false
		}
	}
	return true
}

func innerJoin(a, b *Dataset, key string) ([]string, [][]string) {
	ak, bk := a.Index(key), b.Index(key)
	var header []string
	for _, n := range a.Names() {
		if n != key && b.Index(n) >= 0 {
			n += "_x"
		}
		header = append(header, n)
	}
	for _, n := range b.Names() {
		if n == key {
			continue
		}
		if a.Index(n) >= 0 {
			n += "_y"
		}
		header = append(header, n)
	}

	byKey := make(map[string][]int)
	keyCol := b.cols[bk]
	for i := 0; i < b.Rows(); i++ {
		if keyCol.IsNull(i) {
			continue
		}
		k := keyCol.Text(i)
		byKey[k] = append(byKey[k], i)
	}
	var rows [][]string
	for i := 0; i < a.Rows(); i++ {
		if a.cols[ak].IsNull(i) {
			continue
		}
		left := a.Record(i)
		for _, r := range byKey[left[ak]] {
			right := b.Record(r)
			row := append([]string(nil), left...)
			for j, v := range right {
				if j != bk {
					row = append(row, v)
				}
			}
			rows = append(rows, row)
		}
	}
	return header, rows
}

func dedupeRows(rows [][]string) ([][]string, int) {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := strings.Join(r, "\x1f")
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}
