package pdfgen

import (
	"math"

	"github.com/jung-kurt/gofpdf"
)

// pageFlow owns cursor and page-break bookkeeping for one generation. Every
// Generate call builds its own pageFlow around its own gofpdf instance, so
// no layout state is ever shared between concurrent generations.
type pageFlow struct {
	pdf          *gofpdf.Fpdf
	pageHeight   float64
	bottomMargin float64
}

func newPageFlow(pdf *gofpdf.Fpdf) *pageFlow {
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	return &pageFlow{pdf: pdf, pageHeight: pageHeight, bottomMargin: bottom}
}

// remaining reports the vertical space left above the bottom margin, in mm.
func (p *pageFlow) remaining() float64 {
	return p.pageHeight - p.bottomMargin - p.pdf.GetY()
}

// ensureSpace starts a new page unless need mm still fit on the current one.
// Every block calls this with its estimated opening height before drawing,
// so a block's first line never starts below the bottom margin. Text that
// keeps wrapping past the estimate flows across the break on its own.
func (p *pageFlow) ensureSpace(need float64) {
	if p.remaining() < math.Max(need, 1.0) {
		p.pdf.AddPage()
	}
}

// contentWidth is the horizontal budget between the side margins.
func (p *pageFlow) contentWidth() float64 {
	pageWidth, _ := p.pdf.GetPageSize()
	left, _, right, _ := p.pdf.GetMargins()
	return pageWidth - left - right
}

// textHeight predicts what a MultiCell of txt at width w will consume. It
// uses the same line split the draw performs, so the estimate and the real
// consumption agree. The current font must already be the draw font.
func (p *pageFlow) textHeight(w, lineHeight float64, txt string) float64 {
	lines := len(p.pdf.SplitText(txt, w))
	if lines < 1 {
		lines = 1
	}
	return float64(lines) * lineHeight
}
