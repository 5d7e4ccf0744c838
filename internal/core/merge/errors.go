package merge

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/plsft/DotEnvX/internal/core/ecies"
	"github.com/plsft/DotEnvX/internal/core/parser"
)

// ErrorKind is the closed set of failure categories a run can produce.
// Callers switch on kinds instead of matching message strings.
type ErrorKind int

const (
	// KindMissingSource: a plain source file is absent, or a vault file
	// lacks the requested environment entry.
	KindMissingSource ErrorKind = iota + 1
	// KindMissingVaultKey: a vault source was requested without DOTENV_KEY
	// material to open it.
	KindMissingVaultKey
	// KindUnterminatedQuote: a quoted value never closed; fatal for the
	// source that contains it.
	KindUnterminatedQuote
	// KindMalformedLine: a non-comment line did not match the KEY=VALUE
	// grammar; the rest of the source still parses.
	KindMalformedLine
	// KindAuthenticationFailed: a sealed value failed to open. Never
	// ignorable, since it signals tampering or wrong-key use.
	KindAuthenticationFailed
	// KindInvalidKeyEncoding: key material is not hex of the right length.
	KindInvalidKeyEncoding
	// KindKeyNotFound: a requested key is absent from the merged result.
	// Produced by lookups on the result, not by the merge itself.
	KindKeyNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingSource:
		return "missing source"
	case KindMissingVaultKey:
		return "missing vault key"
	case KindUnterminatedQuote:
		return "unterminated quote"
	case KindMalformedLine:
		return "malformed line"
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindInvalidKeyEncoding:
		return "invalid key encoding"
	case KindKeyNotFound:
		return "key not found"
	default:
		return "unknown"
	}
}

// Error ties a failure kind to the source it occurred in.
type Error struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// classify wraps an underlying failure with its taxonomy kind.
func classify(source string, err error) *Error {
	kind := KindMalformedLine
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindMissingSource
	case errors.Is(err, parser.ErrUnterminatedQuote):
		kind = KindUnterminatedQuote
	case errors.Is(err, parser.ErrMalformedLine):
		kind = KindMalformedLine
	case errors.Is(err, ecies.ErrAuthenticationFailed):
		kind = KindAuthenticationFailed
	case errors.Is(err, ecies.ErrInvalidKeyEncoding):
		kind = KindInvalidKeyEncoding
	}
	return &Error{Kind: kind, Source: source, Err: err}
}
