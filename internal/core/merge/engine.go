// Package merge folds an ordered list of dotenv sources into one effective
// environment under an explicit override policy. It is the only writer of
// that environment; callers apply the returned map themselves if they want
// process-level side effects.
package merge

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plsft/DotEnvX/internal/core/ecies"
	"github.com/plsft/DotEnvX/internal/core/keyring"
	"github.com/plsft/DotEnvX/internal/core/parser"
)

// DefaultVaultEnvironment is assumed when key material names none.
const DefaultVaultEnvironment = "production"

// Options configures one run. Ambient is the caller's snapshot of the
// process environment; the engine never reads or mutates globals.
type Options struct {
	Sources []Source
	Ambient map[string]string

	// Keys holds the private keys available for opening sealed values.
	Keys keyring.Store
	// DotenvKey is the out-of-band key material for vault sources, either
	// a scheme://:<key>@host/path?environment=<name> URI or a bare key.
	DotenvKey string

	// Overload lets later sources replace keys that already resolved.
	Overload bool
	// Strict aborts the run on the first non-ignored error.
	Strict bool
	// IgnoreKinds drops matching kinds from the aggregate failure signal.
	// KindAuthenticationFailed cannot be ignored.
	IgnoreKinds []ErrorKind

	Reader SourceReader
	Logger zerolog.Logger
}

// ProcessedSource is the outcome of folding one source.
type ProcessedSource struct {
	Source Source
	// Parsed is what the source said, post decryption and expansion.
	Parsed map[string]string
	// Injected keys were written into the effective environment.
	Injected []string
	// PreExisted keys kept their ambient value under the override policy.
	PreExisted []string
	Errors     []*Error
}

// RunResult aggregates a whole run. Immutable once returned.
type RunResult struct {
	Sources []ProcessedSource
	// Injected is the union of injected keys across sources in
	// first-injection order.
	Injected []string
	// Merged is the final effective environment snapshot.
	Merged map[string]string
	// Errors is every collected error except ignored kinds.
	Errors []*Error
}

// Run processes every source in order, threading one effective environment
// seeded from Ambient. Per-source errors are collected, not thrown; the run
// visits every source unless Strict escalates a failure.
func Run(opts Options) (*RunResult, error) {
	e := &engine{
		opts:      opts,
		log:       opts.Logger,
		effective: make(map[string]string, len(opts.Ambient)),
		result:    &RunResult{Merged: nil},
	}
	for k, v := range opts.Ambient {
		e.effective[k] = v
	}

	for _, src := range opts.Sources {
		ps := e.process(src)
		e.result.Sources = append(e.result.Sources, *ps)

		for _, srcErr := range ps.Errors {
			if e.ignored(srcErr.Kind) {
				continue
			}
			e.result.Errors = append(e.result.Errors, srcErr)
			if opts.Strict {
				e.result.Merged = e.effective
				return e.result, fmt.Errorf("strict mode: %w", srcErr)
			}
		}
	}

	e.result.Merged = e.effective
	return e.result, nil
}

type engine struct {
	opts      Options
	log       zerolog.Logger
	effective map[string]string
	result    *RunResult
}

func (e *engine) process(src Source) *ProcessedSource {
	ps := &ProcessedSource{Source: src, Parsed: map[string]string{}}

	e.log.Debug().Str("source", src.Locator).Stringer("kind", src.Kind).Msg("processing source")

	switch src.Kind {
	case VaultFile:
		e.processVault(src, ps)
	default:
		e.processPlain(src, ps)
	}
	return ps
}

func (e *engine) processPlain(src Source, ps *ProcessedSource) {
	text, err := e.opts.Reader.ReadSource(src.Locator)
	if err != nil {
		ps.Errors = append(ps.Errors, classify(src.Locator, err))
		return
	}

	var decrypt parser.DecryptFunc
	if priv, ok := e.opts.Keys.Resolve(src.Locator); ok {
		decrypt = func(v string) (string, error) { return ecies.Open(v, priv) }
	} else {
		e.log.Debug().Str("source", src.Locator).Msg("no private key; sealed values pass through")
	}

	doc, parseErrs := parser.Parse(text, e.effective, decrypt)
	for _, perr := range parseErrs {
		ps.Errors = append(ps.Errors, classify(src.Locator, perr))
	}
	e.fold(doc, ps)
}

func (e *engine) processVault(src Source, ps *ProcessedSource) {
	if e.opts.DotenvKey == "" {
		ps.Errors = append(ps.Errors, &Error{Kind: KindMissingVaultKey, Source: src.Locator,
			Err: fmt.Errorf("vault source requires DOTENV_KEY material")})
		return
	}
	key, environment := ParseVaultKey(e.opts.DotenvKey)

	text, err := e.opts.Reader.ReadSource(src.Locator)
	if err != nil {
		ps.Errors = append(ps.Errors, classify(src.Locator, err))
		return
	}

	vault, parseErrs := parser.Parse(text, nil, nil)
	for _, perr := range parseErrs {
		ps.Errors = append(ps.Errors, classify(src.Locator, perr))
	}

	entry := "DOTENV_VAULT_" + strings.ToUpper(environment)
	blob, ok := vault.Values[entry]
	if !ok {
		ps.Errors = append(ps.Errors, &Error{Kind: KindMissingSource, Source: src.Locator,
			Err: fmt.Errorf("vault has no entry %s", entry)})
		return
	}

	plain, err := ecies.Open(blob, key)
	if err != nil {
		ps.Errors = append(ps.Errors, classify(src.Locator, err))
		return
	}

	decrypt := func(v string) (string, error) { return ecies.Open(v, key) }
	doc, parseErrs := parser.Parse(plain, e.effective, decrypt)
	for _, perr := range parseErrs {
		ps.Errors = append(ps.Errors, classify(src.Locator, perr))
	}
	e.fold(doc, ps)
}

// fold applies the override policy: a key already resolved in the effective
// environment survives unless Overload is set.
func (e *engine) fold(doc *parser.Document, ps *ProcessedSource) {
	for _, entry := range doc.Entries {
		ps.Parsed[entry.Key] = entry.Value

		if _, exists := e.effective[entry.Key]; exists && !e.opts.Overload {
			ps.PreExisted = append(ps.PreExisted, entry.Key)
			e.log.Trace().Str("key", entry.Key).Msg("pre-existed, keeping ambient value")
			continue
		}
		e.effective[entry.Key] = entry.Value
		ps.Injected = append(ps.Injected, entry.Key)
		if !contains(e.result.Injected, entry.Key) {
			e.result.Injected = append(e.result.Injected, entry.Key)
		}
	}
}

func (e *engine) ignored(kind ErrorKind) bool {
	if kind == KindAuthenticationFailed {
		return false
	}
	for _, k := range e.opts.IgnoreKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// ParseVaultKey splits DOTENV_KEY material into the private key and the
// vault environment it selects. Material that does not parse as a URI with
// embedded credentials is used whole, against the production environment.
func ParseVaultKey(material string) (key, environment string) {
	u, err := url.Parse(material)
	if err == nil && u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			environment = u.Query().Get("environment")
			if environment == "" {
				environment = DefaultVaultEnvironment
			}
			return pw, environment
		}
	}
	return material, DefaultVaultEnvironment
}
