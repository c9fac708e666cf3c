package extract

import (
	"strings"
	"testing"
)

const workbookXML = `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Data" sheetId="1" r:id="rId1"/>
    <sheet name="Totals" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`

const workbookRelsXML = `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>
</Relationships>`

const sharedStringsXML = `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="3" uniqueCount="3">
  <si><t>Name</t></si>
  <si><t>Qty</t></si>
  <si><t>Widget</t></si>
</sst>`

const sheet1XML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1" t="s"><v>1</v></c>
    </row>
    <row r="2">
      <c r="A2" t="s"><v>2</v></c>
      <c r="B2"><v>3</v></c>
    </row>
    <row r="3"></row>
  </sheetData>
</worksheet>`

const sheet2XML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="str"><v>total</v></c>
      <c r="B1"><v>3</v></c>
    </row>
  </sheetData>
</worksheet>`

func TestXlsxText(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"xl/workbook.xml":            workbookXML,
		"xl/_rels/workbook.xml.rels": workbookRelsXML,
		"xl/sharedStrings.xml":       sharedStringsXML,
		"xl/worksheets/sheet1.xml":   sheet1XML,
		"xl/worksheets/sheet2.xml":   sheet2XML,
	})
	got, err := xlsxText(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.Join([]string{
		"# Data",
		"Name ; Qty",
		"Widget ; 3",
		"# Totals",
		"total ; 3",
	}, "\n")
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestXlsxTextWithoutRels(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"xl/workbook.xml":          workbookXML,
		"xl/sharedStrings.xml":     sharedStringsXML,
		"xl/worksheets/sheet1.xml": sheet1XML,
		"xl/worksheets/sheet2.xml": sheet2XML,
	})
	got, err := xlsxText(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "# Data") || !strings.Contains(got, "Widget ; 3") {
		t.Errorf("fallback sheet paths not resolved:\n%q", got)
	}
}

func TestXlsxTextInlineString(t *testing.T) {
	const inlineSheet = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="inlineStr"><is><t>inline value</t></is></c></row>
  </sheetData>
</worksheet>`
	data := buildArchive(t, map[string]string{
		"xl/workbook.xml":          `<workbook><sheets><sheet name="S" sheetId="1"/></sheets></workbook>`,
		"xl/worksheets/sheet1.xml": inlineSheet,
	})
	got, err := xlsxText(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# S\ninline value"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestXlsxTextNotAZip(t *testing.T) {
	if _, err := xlsxText([]byte("nope")); err == nil {
		t.Error("expected error")
	}
}
