// Package parser turns raw dotenv text into an ordered set of resolved
// key/value bindings. It owns the line state machine; the value grammar
// itself lives in the codec package.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/plsft/DotEnvX/internal/core/codec"
)

// Sentinel parse failures. Line-level context is attached via LineError.
var (
	ErrMalformedLine     = errors.New("malformed line")
	ErrUnterminatedQuote = errors.New("unterminated quoted value")
)

// LineError reports a problem tied to a physical line of the source.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// Entry is a single resolved binding.
type Entry struct {
	Key   string
	Value string
}

// DecryptFunc opens an encrypted: value. A nil DecryptFunc leaves ciphertext
// untouched.
type DecryptFunc func(value string) (string, error)

// Document holds the outcome of parsing one source.
//
// Entries preserves first-occurrence order; when a key is bound more than
// once in the same source, the last binding wins and replaces the value at
// the key's original position. Values mirrors Entries as a map.
type Document struct {
	Entries []Entry
	Values  map[string]string
}

var lineRe = regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=(.*)$`)

const encryptedPrefix = "encrypted:"

// Parse scans text line by line and resolves every binding it finds.
//
// ambient supplies values for ${VAR} expansion and always wins over bindings
// made earlier in this same text. Parsing is best-effort: malformed lines are
// reported and skipped, and a failed decryption keeps the ciphertext value.
// Only an unterminated quote aborts, since the rest of the input has been
// consumed as value text by then.
func Parse(text string, ambient map[string]string, decrypt DecryptFunc) (*Document, []error) {
	return parse(text, ambient, decrypt, true)
}

// ParseRaw resolves bindings without expansion or decryption. File-rewriting
// tools use it to see values as they sit on disk.
func ParseRaw(text string) (*Document, []error) {
	return parse(text, nil, nil, false)
}

func parse(text string, ambient map[string]string, decrypt DecryptFunc, expandRefs bool) (*Document, []error) {
	doc := &Document{Values: make(map[string]string)}
	var errs []error

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSuffix(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			errs = append(errs, &LineError{Line: lineNo, Text: trimmed, Err: ErrMalformedLine})
			continue
		}
		key, rest := m[1], m[2]

		value, quote, consumed, err := readValue(rest, lines[i+1:])
		if err != nil {
			errs = append(errs, &LineError{Line: lineNo, Text: trimmed, Err: err})
			return doc, errs
		}
		i += consumed

		// Single quotes keep $ references literal.
		if expandRefs && quote != codec.SingleQuote {
			value = expand(value, ambient, doc.Values)
		}

		if decrypt != nil && strings.HasPrefix(value, encryptedPrefix) {
			plain, err := decrypt(value)
			if err != nil {
				errs = append(errs, &LineError{Line: lineNo, Text: key, Err: err})
			} else {
				value = plain
			}
		}

		doc.bind(key, value)
	}
	return doc, errs
}

// readValue resolves the raw text after the '=' of a matched line, pulling in
// follow-on physical lines while a quoted value stays open. It returns the
// decoded value, the quote style (zero for unquoted), and how many extra
// lines were consumed.
func readValue(rest string, following []string) (string, byte, int, error) {
	trimmed := strings.TrimLeft(rest, " \t")

	quote, quoted := codec.QuoteChar(trimmed)
	if !quoted {
		// A '#' right after the separator whitespace comments out the value.
		if strings.HasPrefix(trimmed, "#") && len(trimmed) < len(rest) {
			return "", 0, 0, nil
		}
		value := strings.TrimRight(codec.StripInlineComment(trimmed), " \t")
		return value, 0, 0, nil
	}

	raw := trimmed
	consumed := 0
	for {
		if end := codec.ClosingQuote(raw, quote, 1); end >= 0 {
			body := raw[1:end]
			if quote == codec.DoubleQuote {
				body = codec.Unescape(body)
			}
			return body, quote, consumed, nil
		}
		if consumed >= len(following) {
			return "", quote, consumed, ErrUnterminatedQuote
		}
		raw += "\n" + strings.TrimSuffix(following[consumed], "\r")
		consumed++
	}
}

// expand applies variable expansion with the ambient environment taking
// precedence over bindings from earlier lines of the same source.
func expand(value string, ambient, local map[string]string) string {
	return codec.Expand(value, func(name string) (string, bool) {
		if v, ok := ambient[name]; ok {
			return v, true
		}
		v, ok := local[name]
		return v, ok
	})
}

func (d *Document) bind(key, value string) {
	if _, exists := d.Values[key]; exists {
		for i := range d.Entries {
			if d.Entries[i].Key == key {
				d.Entries[i].Value = value
				break
			}
		}
	} else {
		d.Entries = append(d.Entries, Entry{Key: key, Value: value})
	}
	d.Values[key] = value
}
