// Package envfile rewrites dotenv files in place. Edits are surgical: only
// the targeted binding's lines change, everything else (comments, blank
// lines, ordering) survives byte for byte.
package envfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/plsft/DotEnvX/internal/core/codec"
)

var lineRe = regexp.MustCompile(`^(\s*(?:export\s+)?)([A-Za-z_][A-Za-z0-9_]*)(\s*=)(.*)$`)

// File is an editable dotenv file. Load it, apply Set calls, then Save.
type File struct {
	Path string

	text   string
	exists bool
	mode   fs.FileMode
}

// Load reads path for editing. A missing file yields an empty File that Save
// will create.
func Load(path string) (*File, error) {
	f := &File{Path: path, mode: 0o600}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	f.mode = info.Mode().Perm()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.text = string(data)
	f.exists = true
	return f, nil
}

// Text returns the current (possibly edited) content.
func (f *File) Text() string { return f.text }

// Exists reports whether the file was present on disk at Load time.
func (f *File) Exists() bool { return f.exists }

// Set binds key to the already-encoded raw value. The first existing binding
// is rewritten in place, keeping its export prefix; later duplicates are
// dropped so the file parses back to the intended value. A new key is
// appended.
func (f *File) Set(key, raw string) {
	lines := strings.Split(f.text, "\n")
	out := make([]string, 0, len(lines))
	replaced := false

	for i := 0; i < len(lines); i++ {
		m := lineRe.FindStringSubmatch(strings.TrimSuffix(lines[i], "\r"))
		if m == nil {
			out = append(out, lines[i])
			continue
		}
		span := valueSpan(m[4], lines[i+1:])
		if m[2] != key {
			out = append(out, lines[i:i+1+span]...)
			i += span
			continue
		}
		if !replaced {
			out = append(out, m[1]+key+m[3]+raw)
			replaced = true
		}
		i += span
	}

	if replaced {
		f.text = strings.Join(out, "\n")
		return
	}

	f.text = strings.Join(out, "\n")
	if f.text != "" && !strings.HasSuffix(f.text, "\n") {
		f.text += "\n"
	}
	f.text += key + "=" + raw + "\n"
}

// Prepend inserts raw lines at the top of the file, typically a banner
// comment block.
func (f *File) Prepend(block string) {
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	f.text = block + f.text
}

// Save writes the content atomically: temp file in the same directory, then
// rename over the target.
func (f *File) Save() error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(f.text); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	if err := tmp.Chmod(f.mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.Path, err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replace %s: %w", f.Path, err)
	}
	f.exists = true
	return nil
}

// valueSpan counts the extra physical lines a value occupies when a quoted
// value stays open past its first line.
func valueSpan(rest string, following []string) int {
	trimmed := strings.TrimLeft(rest, " \t")
	quote, quoted := codec.QuoteChar(trimmed)
	if !quoted {
		return 0
	}
	raw := trimmed
	span := 0
	for {
		if codec.ClosingQuote(raw, quote, 1) >= 0 {
			return span
		}
		if span >= len(following) {
			// Unterminated: the rest of the file is value text.
			return span
		}
		raw += "\n" + strings.TrimSuffix(following[span], "\r")
		span++
	}
}
