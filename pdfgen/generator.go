package pdfgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ContentTypePDF is the media type reported with every generated document.
const ContentTypePDF = "application/pdf"

// Result is one finished generation.
type Result struct {
	Bytes       []byte
	Filename    string
	ContentType string
}

// Generator turns validated Documents into PDF bytes. It is stateless and
// safe for concurrent use; every Generate call builds its own page flow.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Generate renders doc on A4 portrait pages and returns the serialized
// bytes. Any failure aborts the whole document; there is never partial
// output. A single bad image fails the generation rather than being skipped.
func (g *Generator) Generate(doc *Document) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	opts := doc.Options

	pdf := gofpdf.New("P", "mm", "A4", g.cfg.FontDir)
	if left, top, right, ok := opts.margins(); ok {
		pdf.SetMargins(left, top, right)
	}
	pdf.SetAutoPageBreak(true, 15)
	if !g.cfg.CreationDate.IsZero() {
		pdf.SetCreationDate(g.cfg.CreationDate)
	}

	font, translate := setupFonts(pdf, g.cfg.FontDir)

	theme := RGB{0, 0, 0}
	if opts.ThemeTextColor != nil {
		theme = *opts.ThemeTextColor
	}

	if opts.PageNumbers {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-15)
			pdf.SetFont(font, "", 8)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 10, translate(fmt.Sprintf("Page %d", pdf.PageNo())), "", 0, "C", false, 0, "")
			pdf.SetTextColor(theme[0], theme[1], theme[2])
		})
	}

	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}
	if opts.Subject != "" {
		pdf.SetSubject(opts.Subject, true)
	}
	if opts.Keywords != "" {
		pdf.SetKeywords(opts.Keywords, true)
	}
	pdf.SetTitle(doc.Title, true)

	pdf.AddPage()
	pdf.SetTextColor(theme[0], theme[1], theme[2])

	flow := newPageFlow(pdf)
	r := &renderer{
		pdf:         pdf,
		flow:        flow,
		cfg:         g.cfg,
		font:        font,
		translate:   translate,
		allowRemote: opts.AllowRemoteImages,
	}

	// Title gets its own space check and a bold face.
	pdf.SetFont(font, "B", titleFontSize)
	flow.ensureSpace(titleSpace)
	titleAlign := string(opts.TitleAlign)
	if titleAlign == "" {
		titleAlign = string(AlignCenter)
	}
	pdf.MultiCell(flow.contentWidth(), titleLineH, r.text(doc.Title), "", titleAlign, false)
	pdf.Ln(titleGap)

	for i := range doc.ContentBlocks {
		if err := r.renderBlock(&doc.ContentBlocks[i]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, wrapf(KindInternal, err, "serializing pdf")
	}
	return &Result{
		Bytes:       buf.Bytes(),
		Filename:    sanitizeFilename(doc.Filename),
		ContentType: ContentTypePDF,
	}, nil
}

// setupFonts registers the DejaVu UTF-8 faces when the TTF files are present
// in dir, and falls back to the built-in Arial with a cp1252 translator
// otherwise.
func setupFonts(pdf *gofpdf.Fpdf, dir string) (family string, translate func(string) string) {
	regular := filepath.Join(dir, "DejaVuSans.ttf")
	bold := filepath.Join(dir, "DejaVuSans-Bold.ttf")
	if fileExists(regular) && fileExists(bold) {
		pdf.AddUTF8Font("DejaVu", "", "DejaVuSans.ttf")
		pdf.AddUTF8Font("DejaVu", "B", "DejaVuSans-Bold.ttf")
		if pdf.Error() == nil {
			pdf.SetFont("DejaVu", "", 12)
			return "DejaVu", func(s string) string { return s }
		}
		pdf.ClearError()
	}
	pdf.SetFont("Arial", "", 12)
	return "Arial", pdf.UnicodeTranslatorFromDescriptor("")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sanitizeFilename normalizes the requested name into a safe attachment name
// with a forced .pdf extension.
func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(sanitizeText(name), ".pdf")
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	return name + ".pdf"
}
