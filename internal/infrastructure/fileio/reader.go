// Package fileio reads source files into text, honoring byte-order marks.
// Plain files written by Windows tooling commonly arrive as UTF-16; the
// engine only ever sees UTF-8 strings.
package fileio

import (
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Reader is the filesystem-backed SourceReader used outside of tests.
type Reader struct{}

func NewReader() Reader { return Reader{} }

// ReadSource reads and decodes one file. Missing-file errors keep their
// fs.ErrNotExist identity so the engine can classify them.
func (Reader) ReadSource(locator string) (string, error) {
	return ReadFile(locator)
}

// ReadFile returns the decoded text of path. A UTF-8 BOM is stripped; a
// UTF-16 BOM (either endianness) switches the decoder accordingly.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}
