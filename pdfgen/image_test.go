package pdfgen

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBase64Loose(t *testing.T) {
	raw := testPNG(t, 4, 4)
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"plain", std},
		{"data uri prefix", "data:image/png;base64," + std},
		{"uppercase data uri", "DATA:IMAGE/PNG;base64," + std},
		{"embedded whitespace", std[:10] + "\n  " + std[10:]},
		{"missing padding", strings.TrimRight(std, "=")},
		{"url-safe alphabet", base64.RawURLEncoding.EncodeToString(raw)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64Loose(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("decoded bytes differ from original")
			}
		})
	}

	if _, err := decodeBase64Loose("!!!not base64!!!"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDisallowedURL(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		url     string
		blocked bool
	}{
		{"http://example.com/a.png", false},
		{"https://example.com/a.png", false},
		{"ftp://example.com/a.png", true},
		{"http://localhost/a.png", true},
		{"http://LOCALHOST/a.png", true},
		{"http://127.0.0.1/a.png", true},
		{"http://127.0.0.1:8080/a.png", true},
		{"http://0.0.0.0/a.png", true},
		{"http://169.254.10.1/a.png", true},
		{"http://[::1]/a.png", true},
		{"http:///nohost", true},
	}
	for _, tt := range tests {
		if got := cfg.disallowedURL(tt.url); got != tt.blocked {
			t.Errorf("disallowedURL(%q) = %v, want %v", tt.url, got, tt.blocked)
		}
	}
}

func TestResolveImageBase64(t *testing.T) {
	cfg := DefaultConfig()
	raw := testPNG(t, 8, 8)

	img := &ImageContent{Base64Data: base64.StdEncoding.EncodeToString(raw)}
	got, err := resolveImage(img, cfg, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("resolved bytes differ from original")
	}

	t.Run("over limit", func(t *testing.T) {
		small := cfg
		small.MaxImageBytes = 16
		_, err := resolveImage(img, small, true)
		if KindOf(err) != KindResourceLimit {
			t.Errorf("expected resource limit kind, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		bad := &ImageContent{Base64Data: base64.StdEncoding.EncodeToString([]byte("hello, plain text"))}
		_, err := resolveImage(bad, cfg, true)
		if KindOf(err) != KindValidation {
			t.Errorf("expected validation kind, got %v (%v)", KindOf(err), err)
		}
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubClient(status int, body []byte) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
}

func TestFetchRemoteImage(t *testing.T) {
	raw := testPNG(t, 8, 8)

	t.Run("success", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPClient = stubClient(http.StatusOK, raw)
		got, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, raw) {
			t.Error("fetched bytes differ from original")
		}
	})

	t.Run("sets request headers", func(t *testing.T) {
		cfg := DefaultConfig()
		var seen *http.Request
		cfg.HTTPClient = &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			seen = r
			return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(raw)), Header: make(http.Header)}, nil
		})}
		if _, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen.Header.Get("User-Agent") != cfg.UserAgent {
			t.Errorf("user agent not set, got %q", seen.Header.Get("User-Agent"))
		}
		if seen.Header.Get("Referer") == "" {
			t.Error("referer not set")
		}
	})

	t.Run("forbidden maps to sentinel", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPClient = stubClient(http.StatusForbidden, nil)
		_, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, true)
		if !errors.Is(err, ErrRemoteBlocked) {
			t.Errorf("expected ErrRemoteBlocked, got %v", err)
		}
		if KindOf(err) != KindNetwork {
			t.Errorf("expected network kind, got %v", KindOf(err))
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPClient = stubClient(http.StatusNotFound, nil)
		_, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, true)
		if KindOf(err) != KindNetwork {
			t.Errorf("expected network kind, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("remote disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPClient = stubClient(http.StatusOK, raw)
		_, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, false)
		if KindOf(err) != KindValidation {
			t.Errorf("expected validation kind, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("blocked host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTPClient = stubClient(http.StatusOK, raw)
		_, err := fetchRemoteImage("http://127.0.0.1/pic.png", cfg, true)
		if KindOf(err) != KindValidation {
			t.Errorf("expected validation kind, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxImageBytes = 16
		cfg.HTTPClient = stubClient(http.StatusOK, raw)
		_, err := fetchRemoteImage("http://img.example.com/pic.png", cfg, true)
		if KindOf(err) != KindResourceLimit {
			t.Errorf("expected resource limit kind, got %v (%v)", KindOf(err), err)
		}
	})
}

func TestReadLocalImage(t *testing.T) {
	cfg := DefaultConfig()
	raw := testPNG(t, 8, 8)

	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readLocalImage(path, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("read bytes differ from original")
	}

	if _, err := readLocalImage(filepath.Join(dir, "missing.png"), cfg); KindOf(err) != KindValidation {
		t.Errorf("expected validation kind for missing file, got %v", err)
	}

	cfg.MaxImageBytes = 16
	if _, err := readLocalImage(path, cfg); KindOf(err) != KindResourceLimit {
		t.Errorf("expected resource limit kind, got %v", err)
	}
}

func TestNormalizeImage(t *testing.T) {
	t.Run("nrgba passthrough dimensions", func(t *testing.T) {
		pngBytes, wMM, hMM, err := normalizeImage(testPNG(t, 96, 48))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(wMM-25.4) > 1e-9 || math.Abs(hMM-12.7) > 1e-9 {
			t.Errorf("got %v x %v mm, want 25.4 x 12.7", wMM, hMM)
		}
		decoded, err := png.Decode(bytes.NewReader(pngBytes))
		if err != nil {
			t.Fatalf("output is not png: %v", err)
		}
		if decoded.Bounds().Dx() != 96 || decoded.Bounds().Dy() != 48 {
			t.Errorf("pixel dimensions changed: %v", decoded.Bounds())
		}
	})

	t.Run("ycbcr converted", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, src, nil); err != nil {
			t.Fatal(err)
		}
		pngBytes, _, _, err := normalizeImage(buf.Bytes())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		decoded, err := png.Decode(bytes.NewReader(pngBytes))
		if err != nil {
			t.Fatalf("output is not png: %v", err)
		}
		if _, ok := decoded.(*image.NRGBA); !ok {
			t.Errorf("expected NRGBA output, got %T", decoded)
		}
	})

	t.Run("paletted converted", func(t *testing.T) {
		src := image.NewPaletted(image.Rect(0, 0, 6, 6), color.Palette{color.Black, color.White})
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := normalizeImage(buf.Bytes()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, _, _, err := normalizeImage([]byte("definitely not an image"))
		if KindOf(err) != KindDecode {
			t.Errorf("expected decode kind, got %v (%v)", KindOf(err), err)
		}
	})
}

func TestFitImage(t *testing.T) {
	const cw = 170.0
	natW := 300 * mmPerPx // 79.375
	natH := 150 * mmPerPx

	tests := []struct {
		name           string
		wantW, wantH   float64
		natW, natH     float64
		expW, expH     float64
	}{
		{"natural size fits", 0, 0, natW, natH, natW, natH},
		{"wide image clamped", 0, 0, 800 * mmPerPx, 400 * mmPerPx, cw, cw / 2},
		{"explicit width", 100, 0, natW, natH, 100, 50},
		{"explicit height", 0, 40, natW, natH, 80, 40},
		{"both explicit", 60, 90, natW, natH, 60, 90},
		{"explicit width over budget", 200, 0, natW, natH, cw, cw / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitImage(tt.wantW, tt.wantH, tt.natW, tt.natH, cw)
			if math.Abs(w-tt.expW) > 1e-9 || math.Abs(h-tt.expH) > 1e-9 {
				t.Errorf("fitImage = %v x %v, want %v x %v", w, h, tt.expW, tt.expH)
			}
		})
	}
}
