package pdfgen

import (
	"bytes"
	"encoding/json"
	"math"
)

// Align is a horizontal alignment code, matching what gofpdf expects.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

func (a Align) valid() bool {
	switch a {
	case "", AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// BlockType tags a content block variant.
type BlockType string

const (
	BlockHeading    BlockType = "heading"
	BlockSubheading BlockType = "subheading"
	BlockParagraph  BlockType = "paragraph"
	BlockBulletList BlockType = "bullet_list"
	BlockKeyValue   BlockType = "key_value"
	BlockSpacer     BlockType = "spacer"
	BlockImage      BlockType = "image"
)

// RGB is a color triple with channels in 0-255.
type RGB [3]int

func (c *RGB) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return validationf("color must be [R,G,B]: %v", err)
	}
	if len(vals) != 3 {
		return validationf("color must have exactly 3 channels, got %d", len(vals))
	}
	for _, v := range vals {
		if v < 0 || v > 255 {
			return validationf("color channel %d outside 0-255", v)
		}
	}
	copy(c[:], vals)
	return nil
}

// KeyValue is one pair of a key_value block, kept in wire order.
type KeyValue struct {
	Key   string
	Value string
}

// ImageContent describes an image block payload. Exactly one of Src and
// Base64Data must be set.
type ImageContent struct {
	Src        string  `json:"src,omitempty"`
	Base64Data string  `json:"base64_data,omitempty"`
	Width      float64 `json:"width,omitempty"`  // mm
	Height     float64 `json:"height,omitempty"` // mm
	Align      Align   `json:"align,omitempty"`
}

func (img *ImageContent) validate() error {
	if img.Src == "" && img.Base64Data == "" {
		return validationf("image needs src or base64_data")
	}
	if img.Src != "" && img.Base64Data != "" {
		return validationf("image must carry exactly one of src and base64_data")
	}
	if !img.Align.valid() {
		return validationf("image align must be L, C or R, got %q", img.Align)
	}
	if img.Width < 0 || img.Height < 0 {
		return validationf("image width and height must not be negative")
	}
	return nil
}

type blockStyle struct {
	BackgroundColor *RGB `json:"background_color,omitempty"`
}

// blockEnvelope is the wire shape of a content block before the payload is
// narrowed by its tag.
type blockEnvelope struct {
	Type       BlockType       `json:"type"`
	Content    json.RawMessage `json:"content"`
	Style      *blockStyle     `json:"style,omitempty"`
	LineHeight float64         `json:"line_height,omitempty"`
	Align      Align           `json:"align,omitempty"`
}

// ContentBlock is one typed unit of document content. Exactly one payload
// field is populated, matching Type.
type ContentBlock struct {
	Type BlockType

	Text     string        // heading, subheading, paragraph
	Items    []string      // bullet_list
	Pairs    []KeyValue    // key_value
	SpacerMM int           // spacer
	Image    *ImageContent // image

	LineHeight float64 // optional per-block override, mm
	Align      Align   // paragraph only
	Background *RGB    // optional fill behind this block only
}

// UnmarshalJSON narrows the loose wire payload into the typed variant for the
// block's tag. A payload that does not match its tag is a validation error.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	b.Type = env.Type
	b.LineHeight = env.LineHeight
	b.Align = env.Align
	if !b.Align.valid() {
		return validationf("block align must be L, C or R, got %q", env.Align)
	}
	if b.LineHeight < 0 {
		return validationf("line_height must not be negative")
	}
	if env.Style != nil {
		b.Background = env.Style.BackgroundColor
	}
	if len(env.Content) == 0 {
		return validationf("block %q has no content", env.Type)
	}

	switch env.Type {
	case BlockHeading, BlockSubheading, BlockParagraph:
		if err := json.Unmarshal(env.Content, &b.Text); err != nil {
			return validationf("%s content must be a string", env.Type)
		}
	case BlockBulletList:
		if err := json.Unmarshal(env.Content, &b.Items); err != nil {
			return validationf("bullet_list content must be a list of strings")
		}
		if b.Items == nil {
			b.Items = []string{}
		}
	case BlockKeyValue:
		pairs, err := decodeOrderedPairs(env.Content)
		if err != nil {
			return err
		}
		b.Pairs = pairs
	case BlockSpacer:
		var v float64
		if err := json.Unmarshal(env.Content, &v); err != nil || v != math.Trunc(v) || v < 0 {
			return validationf("spacer content must be a non-negative integer (mm)")
		}
		b.SpacerMM = int(v)
	case BlockImage:
		img := &ImageContent{Align: AlignCenter}
		if err := json.Unmarshal(env.Content, img); err != nil {
			return validationf("image content must be an image object: %v", err)
		}
		if err := img.validate(); err != nil {
			return err
		}
		b.Image = img
	default:
		return validationf("unknown block type %q", env.Type)
	}
	return nil
}

// decodeOrderedPairs reads a JSON object of strings without losing key order.
func decodeOrderedPairs(raw json.RawMessage) ([]KeyValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, validationf("key_value content must be an object of strings")
	}
	if tok != json.Delim('{') {
		return nil, validationf("key_value content must be an object of strings")
	}
	pairs := []KeyValue{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, validationf("key_value content must be an object of strings")
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, validationf("key_value content must be an object of strings")
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return nil, validationf("key_value entry %q must be a string", key)
		}
		pairs = append(pairs, KeyValue{Key: key, Value: val})
	}
	return pairs, nil
}

// Options carries document-level generation options.
type Options struct {
	Author            string    `json:"author,omitempty"`
	Subject           string    `json:"subject,omitempty"`
	Keywords          string    `json:"keywords,omitempty"`
	MarginsMM         []float64 `json:"margins_mm,omitempty"`
	PageNumbers       bool      `json:"page_numbers"`
	TitleAlign        Align     `json:"title_align,omitempty"`
	ThemeTextColor    *RGB      `json:"theme_text_color,omitempty"`
	AllowRemoteImages bool      `json:"allow_remote_images"`
}

// DefaultOptions returns the options used when a document carries none.
func DefaultOptions() Options {
	return Options{
		PageNumbers:       true,
		TitleAlign:        AlignCenter,
		AllowRemoteImages: true,
	}
}

// UnmarshalJSON applies defaults before decoding so that absent fields keep
// their documented default instead of the Go zero value.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	opts := plain(DefaultOptions())
	if err := json.Unmarshal(data, &opts); err != nil {
		return err
	}
	*o = Options(opts)
	return o.validate()
}

func (o *Options) validate() error {
	if o.MarginsMM != nil {
		if n := len(o.MarginsMM); n < 1 || n > 3 {
			return validationf("margins_mm must have 1 (all), 2 (left/top) or 3 (left/top/right) values, got %d", n)
		}
		for _, v := range o.MarginsMM {
			if v < 0 {
				return validationf("margins_mm values must not be negative")
			}
		}
	}
	if !o.TitleAlign.valid() {
		return validationf("title_align must be L, C or R, got %q", o.TitleAlign)
	}
	return nil
}

// margins expands the 1/2/3-value margin list into left, top and right.
func (o *Options) margins() (left, top, right float64, ok bool) {
	switch len(o.MarginsMM) {
	case 1:
		return o.MarginsMM[0], o.MarginsMM[0], o.MarginsMM[0], true
	case 2:
		return o.MarginsMM[0], o.MarginsMM[1], o.MarginsMM[0], true
	case 3:
		return o.MarginsMM[0], o.MarginsMM[1], o.MarginsMM[2], true
	}
	return 0, 0, 0, false
}

// Document is one validated generation request. It is read-only once decoded
// and consumed exactly once to produce bytes.
type Document struct {
	Filename      string         `json:"filename"`
	Title         string         `json:"title"`
	ContentBlocks []ContentBlock `json:"content_blocks"`
	Options       Options        `json:"options"`
}

// UnmarshalJSON seeds the options with their defaults so a document without
// an options object still gets page numbers and remote images enabled.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	doc := plain{Options: DefaultOptions()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*d = Document(doc)
	return d.Validate()
}

// Validate checks the shape invariants that do not require rendering.
func (d *Document) Validate() error {
	if d.Filename == "" {
		return validationf("filename is required")
	}
	if d.Title == "" {
		return validationf("title is required")
	}
	return d.Options.validate()
}
