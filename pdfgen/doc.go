// Package pdfgen composes paginated PDF documents from an ordered sequence
// of typed content blocks: headings, paragraphs, bullet lists, key/value
// lines, spacers and images. All layout arithmetic is in millimeters on A4
// portrait pages.
//
// The package owns the page-flow bookkeeping (when a page must break, how
// much vertical space a block needs before it is drawn), the per-kind block
// renderers, and the image pipeline (base64 / remote URL / local file
// resolution, pixel normalization, 96 DPI physical sizing). One Generate
// call is fully isolated: it builds its own gofpdf instance and page flow,
// so generators may be shared across goroutines.
package pdfgen
