package extract

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// object is one indirect PDF object: its dictionary source and, when
// present, the raw stream bytes.
type object struct {
	dict   string
	stream []byte
}

var (
	objStartRe  = regexp.MustCompile(`(?m)^\s*(\d+)\s+\d+\s+obj\b`)
	pageTypeRe  = regexp.MustCompile(`/Type\s*/Page\b`)
	pagesTypeRe = regexp.MustCompile(`/Type\s*/Pages\b`)
	kidsRe      = regexp.MustCompile(`/Kids\s*\[([^\]]*)\]`)
	contentsRe  = regexp.MustCompile(`/Contents\s*(?:\[([^\]]*)\]|(\d+)\s+\d+\s+R)`)
	refRe       = regexp.MustCompile(`(\d+)\s+\d+\s+R`)
)

// pdfText extracts the text shown by the Tj, ' and TJ operators of every
// page content stream, in page order. It understands the classic layout most
// generators emit: indirect objects locatable by scanning, FlateDecode
// content streams, and WinAnsi-encoded strings. Files it cannot make sense
// of yield an error rather than garbage.
func pdfText(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("not a PDF file")
	}
	objects := scanObjects(data)
	if len(objects) == 0 {
		return "", fmt.Errorf("no objects found in PDF")
	}

	var pages []string
	for _, num := range pageOrder(objects) {
		var chunks []string
		for _, ref := range contentRefs(objects[num].dict) {
			content, ok := objects[ref]
			if !ok || len(content.stream) == 0 {
				continue
			}
			stream := content.stream
			if strings.Contains(content.dict, "/FlateDecode") {
				dec, err := inflate(stream)
				if err != nil {
					return "", fmt.Errorf("decoding page content: %w", err)
				}
				stream = dec
			}
			if t := streamText(stream); t != "" {
				chunks = append(chunks, t)
			}
		}
		if len(chunks) > 0 {
			pages = append(pages, strings.Join(chunks, "\n"))
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// scanObjects locates every "N 0 obj ... endobj" span and splits it into the
// dictionary source and, when present, the stream bytes.
func scanObjects(data []byte) map[int]object {
	objects := make(map[int]object)
	for _, loc := range objStartRe.FindAllSubmatchIndex(data, -1) {
		num, err := strconv.Atoi(string(data[loc[2]:loc[3]]))
		if err != nil {
			continue
		}
		end := len(data)
		if rel := bytes.Index(data[loc[1]:], []byte("endobj")); rel >= 0 {
			end = loc[1] + rel
		}
		body := data[loc[1]:end]

		obj := object{}
		if si := bytes.Index(body, []byte("stream")); si >= 0 {
			obj.dict = string(body[:si])
			s := body[si+len("stream"):]
			s = bytes.TrimPrefix(s, []byte("\r\n"))
			s = bytes.TrimPrefix(s, []byte("\n"))
			if ei := bytes.LastIndex(s, []byte("endstream")); ei >= 0 {
				s = s[:ei]
			}
			obj.stream = s
		} else {
			obj.dict = string(body)
		}
		objects[num] = obj
	}
	return objects
}

// pageOrder lists page object numbers in document order: it walks /Kids from
// the page tree root when one exists and falls back to ascending object
// number otherwise.
func pageOrder(objects map[int]object) []int {
	leaves := make(map[int]bool)
	for num, obj := range objects {
		if pageTypeRe.MatchString(obj.dict) {
			leaves[num] = true
		}
	}

	inKids := make(map[int]bool)
	var treeNodes []int
	for num, obj := range objects {
		if pagesTypeRe.MatchString(obj.dict) {
			treeNodes = append(treeNodes, num)
			for _, kid := range refList(kidsRe, obj.dict) {
				inKids[kid] = true
			}
		}
	}
	sort.Ints(treeNodes)

	var order []int
	seen := make(map[int]bool)
	var walk func(num int)
	walk = func(num int) {
		if seen[num] {
			return
		}
		seen[num] = true
		obj, ok := objects[num]
		if !ok {
			return
		}
		if leaves[num] {
			order = append(order, num)
			return
		}
		for _, kid := range refList(kidsRe, obj.dict) {
			walk(kid)
		}
	}
	for _, num := range treeNodes {
		if !inKids[num] {
			walk(num)
		}
	}

	if len(order) == 0 {
		for num := range leaves {
			order = append(order, num)
		}
		sort.Ints(order)
	}
	return order
}

// contentRefs resolves the /Contents entry into object numbers.
func contentRefs(dict string) []int {
	m := contentsRe.FindStringSubmatch(dict)
	if m == nil {
		return nil
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		return []int{n}
	}
	var refs []int
	for _, r := range refRe.FindAllStringSubmatch(m[1], -1) {
		n, _ := strconv.Atoi(r[1])
		refs = append(refs, n)
	}
	return refs
}

func refList(re *regexp.Regexp, dict string) []int {
	m := re.FindStringSubmatch(dict)
	if m == nil {
		return nil
	}
	var refs []int
	for _, r := range refRe.FindAllStringSubmatch(m[1], -1) {
		n, _ := strconv.Atoi(r[1])
		refs = append(refs, n)
	}
	return refs
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// streamText walks a content stream and collects the operands of the text
// showing operators. Each BT..ET text object becomes one output line, which
// matches the cell-per-line streams the common generators write.
func streamText(stream []byte) string {
	var (
		out     strings.Builder
		line    []string
		pending []string
	)
	flushLine := func() {
		if len(line) > 0 {
			out.WriteString(strings.Join(line, " "))
			out.WriteByte('\n')
			line = nil
		}
	}

	i := 0
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == '(':
			s, n := readLiteralString(stream[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(stream) && stream[i+1] != '<':
			s, n := readHexString(stream[i:])
			pending = append(pending, s)
			i += n
		case c == '[' || c == ']' || c == '{' || c == '}' || c == '<' || c == '>' || c == '/':
			i++
		case isPDFSpace(c):
			i++
		default:
			j := i
			for j < len(stream) && !isPDFSpace(stream[j]) && !isPDFDelim(stream[j]) {
				j++
			}
			switch string(stream[i:j]) {
			case "Tj", "'", "\"":
				if len(pending) > 0 {
					line = append(line, decodeWinAnsi(pending[len(pending)-1]))
				}
				pending = nil
			case "TJ":
				if len(pending) > 0 {
					line = append(line, decodeWinAnsi(strings.Join(pending, "")))
				}
				pending = nil
			case "ET":
				pending = nil
				flushLine()
			default:
				// Any other operator consumes its operands.
				if j > i && !isNumberToken(stream[i:j]) {
					pending = nil
				}
			}
			i = j
		}
	}
	flushLine()
	return strings.TrimRight(out.String(), "\n")
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberToken(tok []byte) bool {
	for _, c := range tok {
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return len(tok) > 0
}

// readLiteralString parses a (...) string starting at b[0], honoring nested
// parentheses and backslash escapes. It returns the decoded bytes and the
// number of input bytes consumed.
func readLiteralString(b []byte) (string, int) {
	var out []byte
	depth := 0
	i := 0
	for i < len(b) {
		c := b[i]
		switch c {
		case '\\':
			if i+1 >= len(b) {
				return string(out), i + 1
			}
			i++
			e := b[i]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(b) && b[i+1] >= '0' && b[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(b[i]-'0')
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return string(out), i
			}
			out = append(out, c)
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out), i
}

// readHexString parses a <...> string starting at b[0].
func readHexString(b []byte) (string, int) {
	i := 1
	var nibbles []byte
	for i < len(b) && b[i] != '>' {
		c := b[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			nibbles = append(nibbles, c)
		}
		i++
	}
	if i < len(b) {
		i++ // consume '>'
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	out := make([]byte, len(nibbles)/2)
	if _, err := hex.Decode(out, nibbles); err != nil {
		return "", i
	}
	return string(out), i
}

func decodeWinAnsi(s string) string {
	out, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
