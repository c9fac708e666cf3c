package pdfgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Per-kind layout constants. All lengths are mm; font sizes are points.
const (
	headingFontSize = 14
	headingLineH    = 8.5
	headingGap      = 4.0

	subheadingFontSize = 11
	subheadingLineH    = 7.0
	subheadingGap      = 2.0

	paragraphFontSize = 11
	paragraphLineH    = 6.0
	paragraphGap      = 2.0

	bulletFontSize = 11
	bulletLineH    = 6.0
	bulletGap      = 1.5
	bulletIndent   = 4.0

	keyValueFontSize = 10
	keyValueLineH    = 7.5
	keyValueGap      = 3.0

	imageGap = 2.0

	titleFontSize = 18
	titleLineH    = 10.0
	titleSpace    = 12.0
	titleGap      = 6.0
)

var textSanitizer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"\u2028", " ", // line separator
	"\u2029", " ", // paragraph separator
)

// sanitizeText swaps characters the PDF text APIs tend to mangle.
func sanitizeText(s string) string {
	return textSanitizer.Replace(s)
}

// renderer draws content blocks through one pageFlow. One renderer exists per
// generation. translate narrows text to cp1252 when the built-in font is
// active and is the identity otherwise.
type renderer struct {
	pdf         *gofpdf.Fpdf
	flow        *pageFlow
	cfg         Config
	font        string
	translate   func(string) string
	allowRemote bool
	imageSeq    int
}

func (r *renderer) text(s string) string {
	return r.translate(sanitizeText(s))
}

// renderBlock dispatches on the block tag. Background fill setup and reset
// live here so a block's fill never leaks into the next block.
func (r *renderer) renderBlock(b *ContentBlock) error {
	fill := false
	if b.Background != nil {
		r.pdf.SetFillColor(b.Background[0], b.Background[1], b.Background[2])
		fill = true
	}

	var err error
	switch b.Type {
	case BlockHeading:
		err = r.renderHeading(b, fill)
	case BlockSubheading:
		err = r.renderSubheading(b, fill)
	case BlockParagraph:
		err = r.renderParagraph(b, fill)
	case BlockBulletList:
		err = r.renderBulletList(b, fill)
	case BlockKeyValue:
		err = r.renderKeyValue(b, fill)
	case BlockSpacer:
		err = r.renderSpacer(b)
	case BlockImage:
		err = r.renderImage(b)
	default:
		err = validationf("unknown block type %q", b.Type)
	}

	if fill {
		r.pdf.SetFillColor(255, 255, 255)
	}
	return err
}

func (b *ContentBlock) lineHeight(def float64) float64 {
	if b.LineHeight > 0 {
		return b.LineHeight
	}
	return def
}

func (r *renderer) renderHeading(b *ContentBlock, fill bool) error {
	lineH := b.lineHeight(headingLineH)
	r.pdf.SetFont(r.font, "B", headingFontSize)
	r.flow.ensureSpace(lineH + headingGap)

	cw := r.flow.contentWidth()
	r.pdf.MultiCell(cw, lineH, r.text(b.Text), "", "L", fill)

	// Horizontal rule under the heading.
	left, _, _, _ := r.pdf.GetMargins()
	y := r.pdf.GetY()
	r.pdf.SetDrawColor(200, 200, 200)
	r.pdf.Line(left, y, left+cw, y)
	r.pdf.Ln(headingGap)
	return nil
}

func (r *renderer) renderSubheading(b *ContentBlock, fill bool) error {
	lineH := b.lineHeight(subheadingLineH)
	r.pdf.SetFont(r.font, "B", subheadingFontSize)
	r.flow.ensureSpace(lineH + subheadingGap)
	r.pdf.MultiCell(r.flow.contentWidth(), lineH, r.text(b.Text), "", "L", fill)
	r.pdf.Ln(subheadingGap)
	return nil
}

func (r *renderer) renderParagraph(b *ContentBlock, fill bool) error {
	lineH := b.lineHeight(paragraphLineH)
	r.pdf.SetFont(r.font, "", paragraphFontSize)
	txt := r.text(b.Text)
	cw := r.flow.contentWidth()
	r.flow.ensureSpace(r.flow.textHeight(cw, lineH, txt) + paragraphGap)

	align := string(b.Align)
	if align == "" {
		align = string(AlignLeft)
	}
	r.pdf.MultiCell(cw, lineH, txt, "", align, fill)
	r.pdf.Ln(paragraphGap)
	return nil
}

func (r *renderer) renderBulletList(b *ContentBlock, fill bool) error {
	if b.Items == nil {
		return validationf("bullet_list block requires a list of strings")
	}
	lineH := b.lineHeight(bulletLineH)
	r.pdf.SetFont(r.font, "", bulletFontSize)
	cw := r.flow.contentWidth()

	// Each item is space-checked on its own so a bullet glyph and its text
	// always land on the same page.
	for _, item := range b.Items {
		txt := r.text(item)
		r.flow.ensureSpace(r.flow.textHeight(cw-bulletIndent, lineH, txt) + bulletGap)
		x := r.pdf.GetX()
		r.pdf.CellFormat(bulletIndent, lineH, r.translate("•"), "", 0, "L", fill, 0, "")
		r.pdf.MultiCell(cw-bulletIndent, lineH, txt, "", "L", fill)
		r.pdf.SetX(x)
	}
	r.pdf.Ln(bulletGap)
	return nil
}

// capitalize matches Python's str.capitalize: first rune upper, rest lower.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
}

func (r *renderer) renderKeyValue(b *ContentBlock, fill bool) error {
	if b.Pairs == nil {
		return validationf("key_value block requires an ordered string map")
	}
	lineH := b.lineHeight(keyValueLineH)
	parts := make([]string, 0, len(b.Pairs))
	for _, kv := range b.Pairs {
		parts = append(parts, fmt.Sprintf("%s: %s", capitalize(kv.Key), strings.TrimSpace(kv.Value)))
	}
	line := r.text(strings.Join(parts, " | "))

	r.pdf.SetFont(r.font, "", keyValueFontSize)
	cw := r.flow.contentWidth()
	r.flow.ensureSpace(r.flow.textHeight(cw, lineH, line) + keyValueGap)
	r.pdf.MultiCell(cw, lineH, line, "", "C", fill)
	r.pdf.Ln(keyValueGap)
	return nil
}

func (r *renderer) renderSpacer(b *ContentBlock) error {
	if b.SpacerMM < 0 {
		return validationf("spacer content must be a non-negative integer (mm)")
	}
	r.flow.ensureSpace(float64(b.SpacerMM))
	r.pdf.Ln(float64(b.SpacerMM))
	return nil
}

func (r *renderer) renderImage(b *ContentBlock) error {
	if b.Image == nil {
		return validationf("image block requires an image object")
	}
	raw, err := resolveImage(b.Image, r.cfg, r.allowRemote)
	if err != nil {
		return err
	}
	pngBytes, naturalW, naturalH, err := normalizeImage(raw)
	if err != nil {
		return err
	}

	cw := r.flow.contentWidth()
	finalW, finalH := fitImage(b.Image.Width, b.Image.Height, naturalW, naturalH, cw)
	r.flow.ensureSpace(finalH + imageGap)

	left, _, _, _ := r.pdf.GetMargins()
	x := left
	switch b.Image.Align {
	case AlignLeft:
	case AlignRight:
		x += cw - finalW
	default:
		x += (cw - finalW) / 2
	}

	r.imageSeq++
	name := fmt.Sprintf("block-image-%d", r.imageSeq)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngBytes))
	r.pdf.ImageOptions(name, x, r.pdf.GetY(), finalW, finalH, false, opts, 0, "")
	if err := r.pdf.Error(); err != nil {
		return wrapf(KindDecode, err, "embedding image")
	}
	r.pdf.Ln(finalH + imageGap)
	return nil
}
