package pdfgen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

// pageCount counts page objects in the serialized document. Page dictionaries
// are written uncompressed, so a substring scan is reliable.
func pageCount(b []byte) int {
	return bytes.Count(b, []byte("/Type /Page")) - bytes.Count(b, []byte("/Type /Pages"))
}

func testDocument(blocks ...ContentBlock) *Document {
	return &Document{
		Filename:      "report",
		Title:         "Test Report",
		ContentBlocks: blocks,
		Options:       DefaultOptions(),
	}
}

func TestGenerateHeadingOnlyIsOnePage(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	res, err := g.Generate(testDocument(ContentBlock{Type: BlockHeading, Text: "Title"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(res.Bytes, []byte("%PDF-")) {
		t.Error("output does not start with %PDF-")
	}
	if got := pageCount(res.Bytes); got != 1 {
		t.Errorf("got %d pages, want 1", got)
	}
	if res.Filename != "report.pdf" {
		t.Errorf("got filename %q", res.Filename)
	}
	if res.ContentType != ContentTypePDF {
		t.Errorf("got content type %q", res.ContentType)
	}
}

func TestGenerateAllBlockKinds(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	bg := RGB{230, 240, 255}
	doc := testDocument(
		ContentBlock{Type: BlockHeading, Text: "Summary"},
		ContentBlock{Type: BlockSubheading, Text: "Details"},
		ContentBlock{Type: BlockParagraph, Text: "Body text.", Align: AlignRight, Background: &bg},
		ContentBlock{Type: BlockParagraph, Text: "Custom spacing.", LineHeight: 8},
		ContentBlock{Type: BlockBulletList, Items: []string{"one", "two"}},
		ContentBlock{Type: BlockKeyValue, Pairs: []KeyValue{{Key: "owner", Value: "ops"}, {Key: "status", Value: "green"}}},
		ContentBlock{Type: BlockSpacer, SpacerMM: 10},
		ContentBlock{Type: BlockImage, Image: &ImageContent{
			Base64Data: base64.StdEncoding.EncodeToString(testPNG(t, 64, 32)),
			Align:      AlignCenter,
		}},
	)
	doc.Options.Author = "Ops Team"
	doc.Options.Subject = "weekly"
	doc.Options.Keywords = "report, weekly"
	doc.Options.MarginsMM = []float64{15, 20, 15}
	doc.Options.ThemeTextColor = &RGB{20, 20, 60}

	res, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pageCount(res.Bytes) < 1 {
		t.Error("no pages emitted")
	}
}

func TestGenerateLongBulletListPaginates(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	items := make([]string, 200)
	for i := range items {
		items[i] = fmt.Sprintf("item %d", i+1)
	}
	res, err := g.Generate(testDocument(ContentBlock{Type: BlockBulletList, Items: items}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pageCount(res.Bytes); got < 2 {
		t.Errorf("200 bullets produced %d page(s)", got)
	}
}

func TestGenerateIsByteIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CreationDate = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(cfg)

	build := func() *Document {
		return testDocument(
			ContentBlock{Type: BlockHeading, Text: "Stable"},
			ContentBlock{Type: BlockParagraph, Text: "Same input, same bytes."},
			ContentBlock{Type: BlockImage, Image: &ImageContent{
				Base64Data: base64.StdEncoding.EncodeToString(testPNG(t, 32, 32)),
				Align:      AlignLeft,
			}},
		)
	}

	first, err := g.Generate(build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.Generate(build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first.Bytes, second.Bytes) {
		t.Errorf("outputs differ: %d vs %d bytes", len(first.Bytes), len(second.Bytes))
	}
}

func TestGenerateFailsWholeDocumentOnBadImage(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	res, err := g.Generate(testDocument(
		ContentBlock{Type: BlockParagraph, Text: "before the failure"},
		ContentBlock{Type: BlockImage, Image: &ImageContent{Base64Data: base64.StdEncoding.EncodeToString([]byte("not an image"))}},
	))
	if err == nil {
		t.Fatal("expected error")
	}
	if res != nil {
		t.Error("partial output returned alongside error")
	}
	if KindOf(err) != KindValidation {
		t.Errorf("expected validation kind, got %v (%v)", KindOf(err), err)
	}
}

func TestGenerateRemoteImageDisabled(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	doc := testDocument(ContentBlock{Type: BlockImage, Image: &ImageContent{Src: "http://img.example.com/a.png"}})
	doc.Options.AllowRemoteImages = false
	_, err := g.Generate(doc)
	if KindOf(err) != KindValidation {
		t.Errorf("expected validation kind, got %v (%v)", KindOf(err), err)
	}
}

func TestGenerateRejectsInvalidDocument(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	tests := []struct {
		name string
		doc  *Document
	}{
		{"missing filename", &Document{Title: "T", Options: DefaultOptions()}},
		{"missing title", &Document{Filename: "f", Options: DefaultOptions()}},
		{"bad margins", &Document{Filename: "f", Title: "T", Options: Options{MarginsMM: []float64{1, 2, 3, 4}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Generate(tt.doc); KindOf(err) != KindValidation {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestGeneratePageNumbersToggle(t *testing.T) {
	g := NewGenerator(DefaultConfig())

	with := testDocument(ContentBlock{Type: BlockParagraph, Text: "x"})
	without := testDocument(ContentBlock{Type: BlockParagraph, Text: "x"})
	without.Options.PageNumbers = false

	resWith, err := g.Generate(with)
	if err != nil {
		t.Fatal(err)
	}
	resWithout, err := g.Generate(without)
	if err != nil {
		t.Fatal(err)
	}
	// The footer adds content to every page, so the outputs must differ.
	if len(resWith.Bytes) <= len(resWithout.Bytes) {
		t.Errorf("footer did not add content: %d vs %d bytes", len(resWith.Bytes), len(resWithout.Bytes))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report", "report.pdf"},
		{"report.pdf", "report.pdf"},
		{"my report", "my_report.pdf"},
		{"  padded  ", "padded.pdf"},
		{"../evil name", "evil_name.pdf"},
		{"a–b", "a-b.pdf"},
		{".", "document.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
