package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type sheetRef struct {
	name string
	path string
}

// xlsxText flattens every worksheet: a "# SheetName" heading followed by one
// line per row, with the non-empty cell values joined by " ; ".
func xlsxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading xlsx: %w", err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return "", err
	}
	sheets, err := readWorkbookSheets(zr)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, sheet := range sheets {
		parts = append(parts, "# "+sheet.name)
		rows, err := readSheetRows(zr, sheet.path, shared)
		if err != nil {
			return "", fmt.Errorf("reading sheet %s: %w", sheet.name, err)
		}
		parts = append(parts, rows...)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// readWorkbookSheets resolves sheet names to worksheet part paths through the
// workbook relationships, falling back to the conventional sheetN.xml names
// when the rels part is missing.
func readWorkbookSheets(zr *zip.Reader) ([]sheetRef, error) {
	wb, err := readArchiveFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil, fmt.Errorf("reading xlsx workbook: %w", err)
	}

	targets := readRelTargets(zr)

	var sheets []sheetRef
	dec := xml.NewDecoder(bytes.NewReader(wb))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xlsx workbook: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		var name, rid string
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "name":
				name = attr.Value
			case "id":
				rid = attr.Value
			}
		}
		path := targets[rid]
		if path == "" {
			path = fmt.Sprintf("xl/worksheets/sheet%d.xml", len(sheets)+1)
		}
		sheets = append(sheets, sheetRef{name: name, path: path})
	}
	return sheets, nil
}

// readRelTargets maps relationship IDs to worksheet part paths.
func readRelTargets(zr *zip.Reader) map[string]string {
	targets := make(map[string]string)
	rels, err := readArchiveFile(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return targets
	}
	dec := xml.NewDecoder(bytes.NewReader(rels))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "Id":
				id = attr.Value
			case "Target":
				target = attr.Value
			}
		}
		if id == "" || target == "" {
			continue
		}
		if strings.HasPrefix(target, "/") {
			targets[id] = strings.TrimPrefix(target, "/")
		} else {
			targets[id] = "xl/" + target
		}
	}
	return targets
}

// readSharedStrings loads the shared string table; workbooks without one
// yield an empty table.
func readSharedStrings(zr *zip.Reader) ([]string, error) {
	data, err := readArchiveFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil
	}
	var (
		shared  []string
		current strings.Builder
		inItem  bool
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xlsx shared strings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inItem = true
				current.Reset()
			case "t":
				if inItem {
					var s string
					if err := dec.DecodeElement(&s, &t); err != nil {
						return nil, fmt.Errorf("parsing xlsx shared strings: %w", err)
					}
					current.WriteString(s)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "si" {
				shared = append(shared, current.String())
				inItem = false
			}
		}
	}
	return shared, nil
}

// readSheetRows flattens one worksheet into row lines.
func readSheetRows(zr *zip.Reader, path string, shared []string) ([]string, error) {
	data, err := readArchiveFile(zr, path)
	if err != nil {
		return nil, err
	}

	var (
		rows     []string
		cells    []string
		cellType string
		value    strings.Builder
		inCell   bool
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = nil
			case "c":
				inCell = true
				cellType = ""
				value.Reset()
				for _, attr := range t.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "t":
				if inCell {
					var s string
					if err := dec.DecodeElement(&s, &t); err != nil {
						return nil, err
					}
					value.WriteString(s)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "c":
				if v := cellValue(cellType, value.String(), shared); v != "" {
					cells = append(cells, v)
				}
				inCell = false
			case "row":
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " ; "))
				}
			}
		}
	}
	return rows, nil
}

// cellValue resolves a raw cell value, following shared-string references.
func cellValue(cellType, raw string, shared []string) string {
	if cellType == "s" {
		var idx int
		if _, err := fmt.Sscanf(raw, "%d", &idx); err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	}
	return strings.TrimSpace(raw)
}

func readArchiveFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
