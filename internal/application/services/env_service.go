// Package services wires the core engine to the outside world: process
// environment snapshots, key files on disk, and file rewrites. CLI commands
// call in here and render the results.
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plsft/DotEnvX/internal/core/codec"
	"github.com/plsft/DotEnvX/internal/core/ecies"
	"github.com/plsft/DotEnvX/internal/core/keyring"
	"github.com/plsft/DotEnvX/internal/core/merge"
	"github.com/plsft/DotEnvX/internal/core/parser"
	"github.com/plsft/DotEnvX/internal/infrastructure/envfile"
	"github.com/plsft/DotEnvX/internal/infrastructure/fileio"
	"github.com/plsft/DotEnvX/internal/infrastructure/sources"
)

// PublicKeyName is the env-file entry that carries the recipient key.
const PublicKeyName = "DOTENV_PUBLIC_KEY"

// KeysFileName is the conventional sibling file holding private keys.
const KeysFileName = ".env.keys"

// EnvService is the facade behind every CLI command. All inputs are explicit
// snapshots; nothing reaches for globals past construction.
type EnvService struct {
	environ []string
	reader  merge.SourceReader
	log     zerolog.Logger
}

// NewEnvService builds a service over the real process environment and
// filesystem.
func NewEnvService(log zerolog.Logger) *EnvService {
	return &EnvService{environ: os.Environ(), reader: fileio.NewReader(), log: log}
}

// NewEnvServiceWith builds a service with injected collaborators, for tests.
func NewEnvServiceWith(environ []string, reader merge.SourceReader, log zerolog.Logger) *EnvService {
	return &EnvService{environ: environ, reader: reader, log: log}
}

// RunOptions selects sources and policy for one load.
type RunOptions struct {
	Paths      []string
	Convention string
	Overload   bool
	Strict     bool
}

// Run loads, decrypts, and merges the selected sources. The returned result
// carries the merged map; applying it to the process environment is the
// caller's choice.
func (s *EnvService) Run(opts RunOptions) (*merge.RunResult, error) {
	ambient := environToMap(s.environ)

	srcs, err := sources.Build(sources.Options{
		Paths:      opts.Paths,
		Convention: opts.Convention,
		DotenvKey:  ambient["DOTENV_KEY"],
	})
	if err != nil {
		return nil, err
	}

	return merge.Run(merge.Options{
		Sources:   srcs,
		Ambient:   ambient,
		Keys:      s.keyStore(srcs),
		DotenvKey: ambient["DOTENV_KEY"],
		Overload:  opts.Overload,
		Strict:    opts.Strict,
		Reader:    s.reader,
		Logger:    s.log,
	})
}

// Get runs a load and returns one key's merged value.
func (s *EnvService) Get(key string, opts RunOptions) (string, error) {
	result, err := s.Run(opts)
	if err != nil {
		return "", err
	}
	value, ok := result.Merged[key]
	if !ok {
		return "", &merge.Error{Kind: merge.KindKeyNotFound, Source: strings.Join(opts.Paths, ","),
			Err: fmt.Errorf("key %s not present in merged environment", key)}
	}
	return value, nil
}

// Set writes one binding into path. Unless plain is requested the value is
// sealed to the file's public key, generating and persisting a keypair on
// first use.
func (s *EnvService) Set(path, key, value string, plain bool) error {
	f, err := envfile.Load(path)
	if err != nil {
		return err
	}

	raw := codec.Encode(value)
	if !plain {
		pub, err := s.ensurePublicKey(f)
		if err != nil {
			return err
		}
		raw, err = ecies.Seal(value, pub)
		if err != nil {
			return err
		}
	}

	f.Set(key, raw)
	return f.Save()
}

// Encrypt seals every plaintext value of path in place.
func (s *EnvService) Encrypt(path string) error {
	f, err := envfile.Load(path)
	if err != nil {
		return err
	}
	if !f.Exists() {
		return fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}

	doc, parseErrs := parser.ParseRaw(f.Text())
	if err := firstFatal(path, parseErrs); err != nil {
		return err
	}

	pub, err := s.ensurePublicKey(f)
	if err != nil {
		return err
	}

	for _, entry := range doc.Entries {
		if entry.Key == PublicKeyName || ecies.IsSealed(entry.Value) {
			continue
		}
		sealed, err := ecies.Seal(entry.Value, pub)
		if err != nil {
			return fmt.Errorf("seal %s: %w", entry.Key, err)
		}
		f.Set(entry.Key, sealed)
		s.log.Debug().Str("key", entry.Key).Msg("sealed value")
	}
	return f.Save()
}

// Decrypt opens every sealed value of path in place. It requires the
// matching private key in the environment or the sibling key file.
func (s *EnvService) Decrypt(path string) error {
	f, err := envfile.Load(path)
	if err != nil {
		return err
	}
	if !f.Exists() {
		return fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}

	priv, ok := s.privateKeyFor(path)
	if !ok {
		return &merge.Error{Kind: merge.KindMissingVaultKey, Source: path,
			Err: fmt.Errorf("no private key found (looked up %s)", keyring.KeyName(path))}
	}

	doc, parseErrs := parser.ParseRaw(f.Text())
	if err := firstFatal(path, parseErrs); err != nil {
		return err
	}

	for _, entry := range doc.Entries {
		if !ecies.IsSealed(entry.Value) {
			continue
		}
		plain, err := ecies.Open(entry.Value, priv)
		if err != nil {
			return &merge.Error{Kind: merge.KindAuthenticationFailed, Source: path,
				Err: fmt.Errorf("open %s: %w", entry.Key, err)}
		}
		f.Set(entry.Key, codec.Encode(plain))
	}
	return f.Save()
}

// Keypair describes the key material associated with one env file.
type Keypair struct {
	PublicKey      string
	PrivateKey     string
	PrivateKeyName string
}

// Keypair reports path's public key and, when resolvable, its private key.
func (s *EnvService) Keypair(path string) (Keypair, error) {
	kp := Keypair{PrivateKeyName: keyring.KeyName(path)}

	text, err := fileio.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return kp, err
	}
	if err == nil {
		doc, _ := parser.ParseRaw(text)
		kp.PublicKey = doc.Values[PublicKeyName]
	}

	if priv, ok := s.privateKeyFor(path); ok {
		kp.PrivateKey = priv
	}
	return kp, nil
}

// ensurePublicKey returns the file's recipient key, minting and persisting a
// keypair when the file has none.
func (s *EnvService) ensurePublicKey(f *envfile.File) (string, error) {
	doc, _ := parser.ParseRaw(f.Text())
	if pub := doc.Values[PublicKeyName]; pub != "" {
		return pub, nil
	}

	kp, err := ecies.GenerateKeyPair()
	if err != nil {
		return "", err
	}

	f.Set(PublicKeyName, kp.PublicKey)
	if !strings.HasPrefix(f.Text(), "#/") {
		f.Prepend("#/---------------------[DOTENV_PUBLIC_KEY]---------------------/\n" +
			"#/ values below are sealed to this key; private key in .env.keys /\n" +
			"#/---------------------------------------------------------------/")
	}

	keysPath := filepath.Join(filepath.Dir(f.Path), KeysFileName)
	keys, err := envfile.Load(keysPath)
	if err != nil {
		return "", err
	}
	fresh := !keys.Exists()
	keys.Set(keyring.KeyName(f.Path), kp.PrivateKey)
	if fresh {
		keys.Prepend("#/------------------[DOTENV_PRIVATE_KEYS]-----------------/\n" +
			"#/ private decryption keys. DO NOT commit to source control /\n" +
			"#/---------------------------------------------------------/")
	}
	if err := keys.Save(); err != nil {
		return "", err
	}

	s.log.Info().Str("file", f.Path).Str("keys", keysPath).Msg("generated new keypair")
	return kp.PublicKey, nil
}

// keyStore snapshots every private key visible to this run: the process
// environment plus each source directory's key file.
func (s *EnvService) keyStore(srcs []merge.Source) keyring.Store {
	store := keyring.FromEnviron(s.environ)
	seen := map[string]bool{}
	for _, src := range srcs {
		dir := filepath.Dir(src.Locator)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		text, err := fileio.ReadFile(filepath.Join(dir, KeysFileName))
		if err != nil {
			continue
		}
		doc, _ := parser.ParseRaw(text)
		store = store.Merge(doc.Values)
	}
	return store
}

// privateKeyFor resolves path's private key from the environment and the
// sibling key file.
func (s *EnvService) privateKeyFor(path string) (string, bool) {
	store := s.keyStore([]merge.Source{{Kind: merge.PlainFile, Locator: path}})
	return store.Resolve(path)
}

func firstFatal(path string, errs []error) error {
	for _, err := range errs {
		if errors.Is(err, parser.ErrUnterminatedQuote) {
			return &merge.Error{Kind: merge.KindUnterminatedQuote, Source: path, Err: err}
		}
	}
	return nil
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
