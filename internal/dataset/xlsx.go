package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []xlsxSheet `xml:"sheets>sheet"`
}

type xlsxSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"` // r:id
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// xlsxText is a plain or rich text run container (<si> or <is>).
type xlsxText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (x xlsxText) String() string {
	if len(x.Runs) == 0 {
		return x.T
	}
	var b strings.Builder
	b.WriteString(x.T)
	for _, r := range x.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxSharedStrings struct {
	Items []xlsxText `xml:"si"`
}

type xlsxWorksheet struct {
	Rows []struct {
		Cells []xlsxCell `xml:"c"`
	} `xml:"sheetData>row"`
}

type xlsxCell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Value  string    `xml:"v"`
	Inline *xlsxText `xml:"is"`
}

// LoadXLSX reads one worksheet of a .xlsx workbook: the first row is the header.
// If sheetName is empty and sheetIndex <= 0, it defaults to the first sheet.
// sheetIndex is 1-based (Sheet1 == 1).
func LoadXLSX(p string, opt ReadOptions, sheetName string, sheetIndex int) (*Dataset, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	var wb xlsxWorkbook
	if err := unmarshalZipXML(zr, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRelationships
	if err := unmarshalZipXML(zr, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	var shared xlsxSharedStrings
	if err := unmarshalZipXML(zr, "xl/sharedStrings.xml", &shared); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
	}

	target := ""
	if sheetName != "" {
		names := make([]string, len(wb.Sheets))
		for i, s := range wb.Sheets {
			names[i] = s.Name
			if target == "" && strings.EqualFold(s.Name, sheetName) {
				target = targets[s.RID]
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(p), strings.Join(names, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		for _, s := range wb.Sheets {
			if s.SheetID == idx {
				target = targets[s.RID]
				break
			}
		}
		if target == "" {
			target = path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx))
		}
	}

	var ws xlsxWorksheet
	if err := unmarshalZipXML(zr, target, &ws); err != nil {
		return nil, err
	}
	var records [][]string
	for _, row := range ws.Rows {
		records = append(records, sheetRow(row.Cells, shared.Items))
	}
	name := filepath.Base(p)
	if len(records) == 0 {
		return New(name)
	}
	header, rows := records[0], records[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	for _, r := range rows {
		for len(header) < len(r) {
			header = append(header, "")
		}
	}
	return FromRecords(name, header, rows, opt)
}

func sheetRow(cells []xlsxCell, shared []xlsxText) []string {
	var out []string
	next := 0
	for _, c := range cells {
		col := next
		if c.Ref != "" {
			col = colIndexFromRef(c.Ref)
		}
		if col < 0 {
			continue
		}
		next = col + 1
		for len(out) <= col {
			out = append(out, "")
		}
		out[col] = cellValue(c, shared)
	}
	return out
}

func cellValue(c xlsxCell, shared []xlsxText) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx].String()
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
		return ""
	case "b":
		if strings.TrimSpace(c.Value) == "1" {
			return "true"
		}
		return "false"
	case "e":
		return ""
	default:
		return c.Value
	}
}

// unmarshalZipXML decodes a workbook part. A missing part leaves v untouched.
func unmarshalZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := xml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return nil
}

// colIndexFromRef maps a cell reference like "C12" to its 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may carry a leading slash ("/xl/worksheets/sheet1.xml") or be
// relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
