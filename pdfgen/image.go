package pdfgen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// mmPerPx converts pixel dimensions to mm assuming 96 DPI.
const mmPerPx = 25.4 / 96.0

var dataURIPrefix = regexp.MustCompile(`^(?i)data:.*?;base64,`)

// decodeBase64Loose accepts the sloppy base64 real clients send: an optional
// data URI prefix, embedded whitespace, and missing padding. Standard
// decoding is tried first, then the URL-safe alphabet.
func decodeBase64Loose(data string) ([]byte, error) {
	if m := dataURIPrefix.FindString(data); m != "" {
		data = data[len(m):]
	}
	data = strings.Join(strings.Fields(data), "")
	if missing := (4 - len(data)%4) % 4; missing > 0 {
		data += strings.Repeat("=", missing)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	if raw, uerr := base64.URLEncoding.DecodeString(data); uerr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("invalid base64: %v", err)
}

// disallowedURL applies the anti-SSRF policy before any network call:
// http(s) schemes only, and never a loopback or link-local host.
func (c Config) disallowedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || c.DisallowedHosts[host] {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return true
		}
	}
	return false
}

// resolveImage returns the raw bytes for an image block from whichever source
// it carries: embedded base64 data, a remote URL, or a local path.
func resolveImage(img *ImageContent, cfg Config, allowRemote bool) ([]byte, error) {
	if img.Base64Data != "" {
		raw, err := decodeBase64Loose(img.Base64Data)
		if err != nil {
			return nil, validationf("invalid base64 image data: %v", err)
		}
		if int64(len(raw)) > cfg.MaxImageBytes {
			return nil, limitf("base64 image exceeds the %d MiB limit", cfg.MaxImageBytes>>20)
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
			return nil, validationf("base64 data is not a valid image: %v", err)
		}
		return raw, nil
	}
	if img.Src == "" {
		return nil, validationf("image needs src or base64_data")
	}
	if strings.HasPrefix(img.Src, "http") {
		return fetchRemoteImage(img.Src, cfg, allowRemote)
	}
	return readLocalImage(img.Src, cfg)
}

func fetchRemoteImage(src string, cfg Config, allowRemote bool) ([]byte, error) {
	if !allowRemote {
		return nil, validationf("remote image loading is disabled for this document")
	}
	if cfg.disallowedURL(src) {
		return nil, validationf("image URL not allowed: %s", src)
	}

	// Some hosts refuse requests without a plausible referer.
	referer := "https://www.google.com/"
	if u, err := url.Parse(src); err == nil && strings.Contains(u.Hostname(), "wikipedia") {
		referer = "https://wikipedia.org/"
	}

	req, err := http.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		return nil, validationf("invalid image URL: %v", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")
	req.Header.Set("Referer", referer)

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, networkf("fetching image %s: %v", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, wrapf(KindNetwork, ErrRemoteBlocked, "fetching image %s", src)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, networkf("fetching image %s: unexpected status %d", src, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxImageBytes+1))
	if err != nil {
		return nil, networkf("reading image %s: %v", src, err)
	}
	if int64(len(raw)) > cfg.MaxImageBytes {
		return nil, limitf("remote image exceeds the %d MiB limit", cfg.MaxImageBytes>>20)
	}
	return raw, nil
}

func readLocalImage(path string, cfg Config) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, validationf("image file not found: %s", path)
	}
	if info.Size() > cfg.MaxImageBytes {
		return nil, limitf("local image exceeds the %d MiB limit", cfg.MaxImageBytes>>20)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapf(KindInternal, err, "reading image file %s", path)
	}
	return raw, nil
}

// normalizeImage decodes raw image bytes, converts channel layouts outside
// {RGBA, NRGBA, Gray} to NRGBA, and re-encodes as PNG for embedding. The
// returned dimensions are the natural size in mm at 96 DPI.
func normalizeImage(raw []byte) (pngBytes []byte, widthMM, heightMM float64, err error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, decodef("decoding image: %v", err)
	}
	bounds := src.Bounds()

	switch src.(type) {
	case *image.RGBA, *image.NRGBA, *image.Gray:
	default:
		dst := image.NewNRGBA(bounds)
		draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
		src = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, 0, 0, wrapf(KindInternal, err, "re-encoding image")
	}
	return buf.Bytes(), float64(bounds.Dx()) * mmPerPx, float64(bounds.Dy()) * mmPerPx, nil
}

// fitImage resolves the final drawn size in mm. Missing dimensions come from
// the native aspect ratio; the result never exceeds the content width.
func fitImage(wantW, wantH, naturalW, naturalH, contentW float64) (w, h float64) {
	w, h = wantW, wantH
	switch {
	case w == 0 && h == 0:
		w = math.Min(contentW, naturalW)
		h = naturalH * (w / naturalW)
	case w == 0:
		w = naturalW * (h / naturalH)
	case h == 0:
		h = naturalH * (w / naturalW)
	}
	if w > contentW {
		scale := contentW / w
		w *= scale
		h *= scale
	}
	return w, h
}
