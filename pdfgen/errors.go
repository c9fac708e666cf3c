package pdfgen

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure so callers can tell bad input from an
// engine bug.
type Kind int

const (
	// KindInternal covers unexpected failures inside the engine.
	KindInternal Kind = iota
	// KindValidation covers malformed documents: payload/tag mismatches,
	// bad color triples, bad margins, images with no usable source.
	KindValidation
	// KindResourceLimit covers oversized uploads and oversized images.
	KindResourceLimit
	// KindNetwork covers remote image fetch failures and timeouts.
	KindNetwork
	// KindDecode covers image bytes that cannot be decoded after acquisition.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResourceLimit:
		return "resource_limit"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	}
	return "internal"
}

// ErrRemoteBlocked marks a remote host refusing to serve an image (HTTP 403).
// It is wrapped inside a KindNetwork error so callers can single it out.
var ErrRemoteBlocked = errors.New("remote image blocked by upstream host")

// Error is the failure type returned by the generator. Every error that
// escapes a Generate call is one of these.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	switch {
	case e.err != nil && e.msg != "":
		return e.msg + ": " + e.err.Error()
	case e.err != nil:
		return e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// KindOf returns the kind carried by err, or KindInternal when err was not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

func limitf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindResourceLimit, msg: fmt.Sprintf(format, args...)}
}

func networkf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNetwork, msg: fmt.Sprintf(format, args...)}
}

func decodef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDecode, msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}
