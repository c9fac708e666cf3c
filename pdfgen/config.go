package pdfgen

import (
	"net/http"
	"time"
)

// Config collects every limit, timeout and lookup path the generator uses.
// One value is passed in at construction; nothing in this package reads
// ambient globals.
type Config struct {
	// MaxImageBytes is the per-image byte ceiling, whatever the source.
	MaxImageBytes int64

	// FetchTimeout bounds a single remote image fetch. Fetches are never
	// retried; a timeout aborts the whole generation.
	FetchTimeout time.Duration

	// UserAgent identifies the service on outbound image fetches.
	UserAgent string

	// DisallowedHosts are hostnames remote image URLs may never point at,
	// in addition to the loopback and link-local checks.
	DisallowedHosts map[string]bool

	// FontDir is searched for DejaVuSans.ttf / DejaVuSans-Bold.ttf. When
	// they are missing the generator falls back to the built-in Arial.
	FontDir string

	// HTTPClient overrides the fetch client. When nil a client with
	// FetchTimeout is built per generator.
	HTTPClient *http.Client

	// CreationDate pins the document creation timestamp when non-zero,
	// which makes repeated generations byte-identical.
	CreationDate time.Time
}

// DefaultConfig returns the limits the service ships with.
func DefaultConfig() Config {
	return Config{
		MaxImageBytes: 15 << 20,
		FetchTimeout:  12 * time.Second,
		UserAgent:     "Mozilla/5.0 (FileProcessorService/1.2)",
		DisallowedHosts: map[string]bool{
			"localhost": true,
			"127.0.0.1": true,
			"0.0.0.0":   true,
		},
		FontDir: ".",
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.FetchTimeout}
}
