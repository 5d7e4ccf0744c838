// Package keyring maps sources to the private keys that can open their
// sealed values. A Store is a read-only snapshot for one run.
package keyring

import (
	"path/filepath"
	"strings"
)

// DefaultKeyName is the lookup name for the bare ".env" source.
const DefaultKeyName = "DOTENV_PRIVATE_KEY"

// Store maps key names (DOTENV_PRIVATE_KEY or DOTENV_PRIVATE_KEY_<NAME>) to
// private-key hex strings.
type Store map[string]string

// FromEnviron builds a store from os.Environ-shaped "KEY=VALUE" pairs,
// keeping only private-key entries.
func FromEnviron(environ []string) Store {
	s := make(Store)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if name == DefaultKeyName || strings.HasPrefix(name, DefaultKeyName+"_") {
			s[name] = value
		}
	}
	return s
}

// Merge returns a store holding both snapshots, with other winning on
// conflicts.
func (s Store) Merge(other map[string]string) Store {
	merged := make(Store, len(s)+len(other))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range other {
		if v == "" {
			continue
		}
		if k == DefaultKeyName || strings.HasPrefix(k, DefaultKeyName+"_") {
			merged[k] = v
		}
	}
	return merged
}

// KeyName derives the lookup name for a source locator. The base filename is
// stripped of its leading ".env" token and remaining dots; an empty remainder
// means the default name, anything else is appended uppercased:
//
//	.env                  -> DOTENV_PRIVATE_KEY
//	.env.production       -> DOTENV_PRIVATE_KEY_PRODUCTION
//	sub/.env.ci.local     -> DOTENV_PRIVATE_KEY_CILOCAL
func KeyName(locator string) string {
	base := filepath.Base(locator)
	name := strings.TrimPrefix(base, ".env")
	name = strings.ReplaceAll(name, ".", "")
	if name == "" {
		return DefaultKeyName
	}
	return DefaultKeyName + "_" + strings.ToUpper(name)
}

// Resolve finds the private key for a source. A missing key is not an error:
// it means the source's sealed values stay sealed.
func (s Store) Resolve(locator string) (string, bool) {
	key, ok := s[KeyName(locator)]
	return key, ok && key != ""
}
