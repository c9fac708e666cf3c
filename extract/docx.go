package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docxText reads word/document.xml from the OOXML container and walks it in
// document order: one line per paragraph, table rows flattened to their cell
// texts joined with " | ".
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}
	doc, err := readArchiveFile(zr, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("reading docx: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		parts      []string
		para       strings.Builder
		cell       strings.Builder
		row        []string
		tableDepth int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return "", fmt.Errorf("parsing docx xml: %w", err)
				}
				if tableDepth > 0 {
					cell.WriteString(s)
				} else {
					para.WriteString(s)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if tableDepth > 0 {
					// Paragraph break inside a table cell.
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					break
				}
				if s := strings.TrimSpace(para.String()); s != "" {
					parts = append(parts, s)
				}
				para.Reset()
			case "tc":
				if s := strings.TrimSpace(cell.String()); s != "" {
					row = append(row, s)
				}
				cell.Reset()
			case "tr":
				if len(row) > 0 {
					parts = append(parts, strings.Join(row, " | "))
				}
				row = nil
			case "tbl":
				tableDepth--
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}
