package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plsft/DotEnvX/internal/core/merge"
)

// TestBuild_SourceSelection tests option-to-source expansion
func TestBuild_SourceSelection(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected []merge.Source
	}{
		{
			name:     "NoOptions_ShouldDefaultToDotEnv",
			opts:     Options{},
			expected: []merge.Source{{Kind: merge.PlainFile, Locator: ".env"}},
		},
		{
			name: "ExplicitPaths_ShouldKeepOrder",
			opts: Options{Paths: []string{".env.local", ".env"}},
			expected: []merge.Source{
				{Kind: merge.PlainFile, Locator: ".env.local"},
				{Kind: merge.PlainFile, Locator: ".env"},
			},
		},
		{
			name: "Convention_ShouldExpand",
			opts: Options{Convention: "nextjs"},
			expected: []merge.Source{
				{Kind: merge.PlainFile, Locator: ".env.development.local"},
				{Kind: merge.PlainFile, Locator: ".env.local"},
				{Kind: merge.PlainFile, Locator: ".env.development"},
				{Kind: merge.PlainFile, Locator: ".env"},
			},
		},
		{
			name: "ExplicitPathsBeatConvention_ShouldUsePaths",
			opts: Options{Paths: []string{"custom.env"}, Convention: "nextjs"},
			expected: []merge.Source{
				{Kind: merge.PlainFile, Locator: "custom.env"},
			},
		},
		{
			name:     "DotenvKey_ShouldInferVault",
			opts:     Options{DotenvKey: "key material", Paths: []string{".env"}},
			expected: []merge.Source{{Kind: merge.VaultFile, Locator: ".env.vault"}},
		},
		{
			name:     "VaultPathOverride_ShouldBeUsed",
			opts:     Options{DotenvKey: "key material", VaultPath: "conf/.env.vault"},
			expected: []merge.Source{{Kind: merge.VaultFile, Locator: "conf/.env.vault"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcs, err := Build(tt.opts)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, srcs)
		})
	}
}

// TestBuild_UnknownConvention_Fails tests convention validation
func TestBuild_UnknownConvention_Fails(t *testing.T) {
	_, err := Build(Options{Convention: "rails"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown convention")
}
