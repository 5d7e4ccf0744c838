// Package sources expands caller options into the ordered list of sources a
// run processes. Pure string work: nothing here touches the filesystem.
package sources

import (
	"fmt"

	"github.com/plsft/DotEnvX/internal/core/merge"
)

// DefaultVaultFile is the conventional vault file name.
const DefaultVaultFile = ".env.vault"

// Options selects which sources a run should see, in which order.
type Options struct {
	// Paths are explicit env files, processed in the given order.
	Paths []string
	// Convention expands to a framework's default file list when no
	// explicit paths are set.
	Convention string
	// DotenvKey, when present, routes loading through the vault file
	// instead of plain sources.
	DotenvKey string
	// VaultPath overrides the vault file location.
	VaultPath string
}

// conventions maps a convention name to its ordered file list, most specific
// first. First-seen keys win under the default override policy, so the order
// encodes precedence.
var conventions = map[string][]string{
	"nextjs": {".env.development.local", ".env.local", ".env.development", ".env"},
	"flow":   {".env.local", ".env"},
}

// ConventionFiles returns the ordered file list for a convention name.
func ConventionFiles(name string) ([]string, bool) {
	files, ok := conventions[name]
	return files, ok
}

// Build expands opts into ordered sources. Presence of DOTENV_KEY material
// infers vault mode; otherwise explicit paths win over conventions, and the
// fallback is the single ".env" file.
func Build(opts Options) ([]merge.Source, error) {
	if opts.DotenvKey != "" {
		vault := opts.VaultPath
		if vault == "" {
			vault = DefaultVaultFile
		}
		return []merge.Source{{Kind: merge.VaultFile, Locator: vault}}, nil
	}

	paths := opts.Paths
	if len(paths) == 0 && opts.Convention != "" {
		files, ok := ConventionFiles(opts.Convention)
		if !ok {
			return nil, fmt.Errorf("unknown convention %q", opts.Convention)
		}
		paths = files
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	srcs := make([]merge.Source, 0, len(paths))
	for _, p := range paths {
		srcs = append(srcs, merge.Source{Kind: merge.PlainFile, Locator: p})
	}
	return srcs, nil
}
