// Package ecies implements the hybrid public-key encryption used for sealed
// dotenv values: ephemeral ECDH over secp256k1, SHA-256 key derivation, and
// AES-256-GCM authenticated encryption.
//
// The wire format is the string "encrypted:" followed by standard base64 of
//
//	EphemeralPublicKey(65) || Nonce(12) || Ciphertext(N) || Tag(16)
//
// with the ephemeral key as an uncompressed curve point. Every Seal call
// draws a fresh ephemeral keypair, so the derived symmetric key, and with it
// the ciphertext, differs on every call.
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Prefix marks a sealed value.
const Prefix = "encrypted:"

// Fixed framing sizes. The curve and AEAD choices pin all three; Open
// validates against them before touching any offsets.
const (
	pointSize = 65 // uncompressed secp256k1 point: 0x04 || X || Y
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrAuthenticationFailed covers tag mismatches and any ciphertext too
	// corrupt to frame. Callers must never downgrade it: it is the only
	// signal of tampering or wrong-key use.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidKeyEncoding reports a key string that is not valid hex of
	// the expected length.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
)

// KeyPair holds lowercase-hex encoded key material: a 65-byte uncompressed
// public point and a 32-byte private scalar.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair samples a fresh random scalar in [1, n-1] and returns both
// halves hex-encoded. The caller owns persistence.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private key: %w", err)
	}
	return KeyPair{
		PublicKey:  hex.EncodeToString(priv.PubKey().SerializeUncompressed()),
		PrivateKey: hex.EncodeToString(priv.Serialize()),
	}, nil
}

// IsSealed reports whether value carries the sealed-value prefix.
func IsSealed(value string) bool {
	return len(value) > 0 && strings.HasPrefix(value, Prefix)
}

// Seal encrypts plaintext to the holder of recipientPublicKeyHex and returns
// the prefixed, base64-framed ciphertext.
func Seal(plaintext, recipientPublicKeyHex string) (string, error) {
	recipient, err := parsePublicKey(recipientPublicKeyHex)
	if err != nil {
		return "", err
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate ephemeral key: %w", err)
	}

	aead, err := deriveAEAD(ephemeral, recipient)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	payload := make([]byte, 0, pointSize+nonceSize+len(sealed))
	payload = append(payload, ephemeral.PubKey().SerializeUncompressed()...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	return Prefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Open decrypts a sealed value with the recipient's private key. A value
// without the sealed prefix is plaintext and is returned unchanged. Any
// framing violation or tag mismatch yields ErrAuthenticationFailed; partial
// plaintext is never returned.
func Open(value, recipientPrivateKeyHex string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	priv, err := parsePrivateKey(recipientPrivateKeyHex)
	if err != nil {
		return "", err
	}

	payload, err := base64.StdEncoding.DecodeString(value[len(Prefix):])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not valid base64", ErrAuthenticationFailed)
	}
	if len(payload) < pointSize+nonceSize+tagSize {
		return "", fmt.Errorf("%w: ciphertext too short (%d bytes)", ErrAuthenticationFailed, len(payload))
	}

	ephemeralPub, err := secp256k1.ParsePubKey(payload[:pointSize])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ephemeral public key", ErrAuthenticationFailed)
	}

	aead, err := deriveAEAD(priv, ephemeralPub)
	if err != nil {
		return "", err
	}

	nonce := payload[pointSize : pointSize+nonceSize]
	ciphertext := payload[pointSize+nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return string(plaintext), nil
}

// DerivePublicKey recomputes the public half of a private scalar, for
// verifying stored key material against an expected public key.
func DerivePublicKey(privateKeyHex string) (string, error) {
	priv, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(priv.PubKey().SerializeUncompressed()), nil
}

// deriveAEAD runs ECDH between one private and one public key and builds the
// AES-256-GCM cipher from SHA-256 of the shared X coordinate. Both sides of
// a seal/open pair land here with the same point.
func deriveAEAD(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) (cipher.AEAD, error) {
	shared := secp256k1.GenerateSharedSecret(priv, pub)

	// Hash the big-endian unsigned encoding of X, leading zero bytes
	// stripped, not the fixed-width padded form.
	i := 0
	for i < len(shared)-1 && shared[i] == 0 {
		i++
	}
	key := sha256.Sum256(shared[i:])

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}

func parsePublicKey(pubHex string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(strings.ToLower(pubHex))
	if err != nil || len(raw) != pointSize {
		return nil, fmt.Errorf("%w: public key must be %d hex characters", ErrInvalidKeyEncoding, pointSize*2)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	return pub, nil
}

func parsePrivateKey(privHex string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.ToLower(privHex))
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%w: private key must be 64 hex characters", ErrInvalidKeyEncoding)
	}
	var zero [32]byte
	if string(raw) == string(zero[:]) {
		return nil, fmt.Errorf("%w: private key scalar is zero", ErrInvalidKeyEncoding)
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}
