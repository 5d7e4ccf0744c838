package ecies

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGenerateKeyPair_Encodings_MatchWireFormat tests key encoding lengths
func TestGenerateKeyPair_Encodings_MatchWireFormat(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.Len(t, kp.PrivateKey, 64, "private key should be 32 bytes of hex")
	assert.Len(t, kp.PublicKey, 130, "public key should be 65 bytes of hex")
	assert.True(t, strings.HasPrefix(kp.PublicKey, "04"), "public key should be an uncompressed point")
	assert.Equal(t, strings.ToLower(kp.PublicKey), kp.PublicKey, "hex should be lowercase")

	_, err = hex.DecodeString(kp.PrivateKey)
	assert.NoError(t, err, "private key should decode as hex")
	_, err = hex.DecodeString(kp.PublicKey)
	assert.NoError(t, err, "public key should decode as hex")
}

// TestGenerateKeyPair_Distinct tests that successive keypairs differ
func TestGenerateKeyPair_Distinct(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
}

// TestDerivePublicKey_MatchesGenerated tests scalar-to-point derivation
func TestDerivePublicKey_MatchesGenerated(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	derived, err := DerivePublicKey(kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, derived)
}

// TestSealOpen_RoundTrip property: Open(Seal(s, pub), priv) == s
func TestSealOpen_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		plaintext := rapid.String().Draw(t, "plaintext")

		sealed, err := Seal(plaintext, kp.PublicKey)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		opened, err := Open(sealed, kp.PrivateKey)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if opened != plaintext {
			t.Fatalf("round trip mismatch: %q != %q", opened, plaintext)
		}
	})
}

// TestSealOpen_EdgeValues tests empty, long, and control-character payloads
func TestSealOpen_EdgeValues(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "Empty", plaintext: ""},
		{name: "Long", plaintext: strings.Repeat("0123456789abcdef", 4096)},
		{name: "ControlCharacters", plaintext: "a\x00b\nc\td\x7f"},
		{name: "MultiByteRunes", plaintext: "pässwörd 日本語 \U0001f512"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Seal(tt.plaintext, kp.PublicKey)
			require.NoError(t, err)
			opened, err := Open(sealed, kp.PrivateKey)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, opened)
		})
	}
}

// TestSeal_NonDeterministic tests fresh ephemeral key and nonce per call
func TestSeal_NonDeterministic(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	first, err := Seal("same plaintext", kp.PublicKey)
	require.NoError(t, err)
	second, err := Seal("same plaintext", kp.PublicKey)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two seals of the same plaintext must differ")

	opened, err := Open(first, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "same plaintext", opened)
	opened, err = Open(second, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "same plaintext", opened)
}

// TestSeal_WireFormat tests the exact framing layout
func TestSeal_WireFormat(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal("hi", kp.PublicKey)
	require.NoError(t, err)
	require.True(t, IsSealed(sealed))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
	require.NoError(t, err, "payload should be standard base64 with padding")

	// 65-byte point, 12-byte nonce, 2-byte ciphertext, 16-byte tag
	assert.Equal(t, 65+12+2+16, len(payload))
	assert.Equal(t, byte(0x04), payload[0], "ephemeral key should be an uncompressed point")
}

// TestOpen_WrongKey_AuthenticationFailed tests tamper/wrong-key detection
func TestOpen_WrongKey_AuthenticationFailed(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	mallory, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal("for alice only", alice.PublicKey)
	require.NoError(t, err)

	opened, err := Open(sealed, mallory.PrivateKey)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Empty(t, opened, "no partial plaintext on failure")
}

// TestOpen_CorruptCiphertext_FailsCleanly tests framing validation
func TestOpen_CorruptCiphertext_FailsCleanly(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	sealed, err := Seal("payload", kp.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{name: "NotBase64", value: Prefix + "!!!not base64!!!"},
		{name: "TooShort", value: Prefix + base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "FlippedTagBit", value: flipLastPayloadByte(t, sealed)},
		{name: "InvalidPoint", value: zeroPointPrefix(t, sealed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := Open(tt.value, kp.PrivateKey)
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
			assert.Empty(t, opened)
		})
	}
}

// TestOpen_PlaintextPassthrough tests that unprefixed values return unchanged
func TestOpen_PlaintextPassthrough(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	opened, err := Open("just a value", kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "just a value", opened)
}

// TestIsSealed_PrefixDetection tests sealed-value detection
func TestIsSealed_PrefixDetection(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "Sealed_ShouldDetect", value: "encrypted:abc", expected: true},
		{name: "BarePrefix_ShouldDetect", value: "encrypted:", expected: true},
		{name: "Empty_ShouldNotDetect", value: "", expected: false},
		{name: "Plain_ShouldNotDetect", value: "value", expected: false},
		{name: "PrefixMidValue_ShouldNotDetect", value: "x encrypted:abc", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSealed(tt.value))
		})
	}
}

// TestKeyParsing_InvalidEncodings tests InvalidKeyEncoding classification
func TestKeyParsing_InvalidEncodings(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	sealed, err := Seal("x", kp.PublicKey)
	require.NoError(t, err)

	t.Run("OddLengthPrivateKey_ShouldFail", func(t *testing.T) {
		_, err := Open(sealed, "abc")
		assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})

	t.Run("NonHexPrivateKey_ShouldFail", func(t *testing.T) {
		_, err := Open(sealed, strings.Repeat("zz", 32))
		assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})

	t.Run("ZeroPrivateKey_ShouldFail", func(t *testing.T) {
		_, err := Open(sealed, strings.Repeat("00", 32))
		assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})

	t.Run("ShortPublicKey_ShouldFail", func(t *testing.T) {
		_, err := Seal("x", "04abcd")
		assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})

	t.Run("NotAPoint_ShouldFail", func(t *testing.T) {
		_, err := Seal("x", "04"+strings.Repeat("00", 64))
		assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
	})
}

func flipLastPayloadByte(t *testing.T, sealed string) string {
	t.Helper()
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
	require.NoError(t, err)
	payload[len(payload)-1] ^= 0x01
	return Prefix + base64.StdEncoding.EncodeToString(payload)
}

func zeroPointPrefix(t *testing.T, sealed string) string {
	t.Helper()
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
	require.NoError(t, err)
	for i := 0; i < 65; i++ {
		payload[i] = 0
	}
	return Prefix + base64.StdEncoding.EncodeToString(payload)
}
