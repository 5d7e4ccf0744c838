// Package codec defines the value grammar shared by parsing and
// serialization: quoting styles, escape sequences, inline comments, and
// variable expansion.
package codec

import "strings"

// Quote styles a value can carry in source text.
const (
	DoubleQuote = '"'
	SingleQuote = '\''
)

// QuoteChar reports the opening quote character of a raw value, if any.
func QuoteChar(raw string) (byte, bool) {
	if len(raw) > 0 && (raw[0] == DoubleQuote || raw[0] == SingleQuote) {
		return raw[0], true
	}
	return 0, false
}

// ClosingQuote returns the index of the first unescaped occurrence of quote
// in raw, searching from offset from. Returns -1 when the quote never closes.
// Single-quoted values have no escapes, so any quote character terminates.
func ClosingQuote(raw string, quote byte, from int) int {
	for i := from; i < len(raw); i++ {
		if raw[i] != quote {
			continue
		}
		if quote == SingleQuote {
			return i
		}
		// A double quote is escaped when preceded by an odd run of backslashes.
		backslashes := 0
		for j := i - 1; j >= from && raw[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}

// Unescape processes the escape sequences recognized inside double-quoted
// values: \n \r \t \" \' \\. Unrecognized sequences are kept verbatim,
// backslash included.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// StripInlineComment truncates an unquoted value at the first '#' preceded by
// whitespace and trims the trailing whitespace left behind. A '#' glued to
// the value text is part of the value.
func StripInlineComment(s string) string {
	for i := 1; i < len(s); i++ {
		if s[i] == '#' && (s[i-1] == ' ' || s[i-1] == '\t') {
			return strings.TrimRight(s[:i], " \t")
		}
	}
	return s
}

// Expand substitutes ${NAME} and $NAME references in a single pass using
// resolve. Unresolved references are left verbatim, as is any '$' that does
// not start a reference. Substituted text is not re-scanned.
func Expand(s string, resolve func(name string) (string, bool)) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		name, next, ok := scanReference(s, i+1)
		if !ok {
			b.WriteByte(c)
			continue
		}
		if v, found := resolve(name); found {
			b.WriteString(v)
		} else {
			b.WriteString(s[i:next])
		}
		i = next - 1
	}
	return b.String()
}

// scanReference reads a variable reference starting right after a '$'.
// It returns the referenced name, the index just past the reference, and
// whether a well-formed reference was present.
func scanReference(s string, i int) (string, int, bool) {
	braced := i < len(s) && s[i] == '{'
	if braced {
		i++
	}
	start := i
	for i < len(s) && isNameByte(s[i], i > start) {
		i++
	}
	if i == start {
		return "", 0, false
	}
	name := s[start:i]
	if braced {
		if i >= len(s) || s[i] != '}' {
			return "", 0, false
		}
		i++
	}
	return name, i, true
}

func isNameByte(c byte, tail bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return tail
	}
	return false
}

// Encode renders a value so that parsing the result yields the value back.
// Plain values stay bare; anything that would be mangled by the grammar is
// double-quoted with escapes applied.
func Encode(v string) string {
	if v == "" {
		return `""`
	}
	if !needsQuoting(v) {
		return v
	}
	// Double quotes re-expand $ references on parse; single quotes are the
	// only style that keeps them literal.
	if strings.ContainsRune(v, '$') && !strings.ContainsAny(v, "'\r\t") {
		return string(SingleQuote) + v + string(SingleQuote)
	}
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte(DoubleQuote)
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(DoubleQuote)
	return b.String()
}

func needsQuoting(v string) bool {
	if v[0] == DoubleQuote || v[0] == SingleQuote {
		return true
	}
	return strings.ContainsAny(v, " \t\n\r\"\\#$")
}
