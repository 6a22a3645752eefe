package encryption

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetSecret("test-secret")
}

func TestRoundTrip(t *testing.T) {
	for _, text := range []string{
		"hello",
		"a longer message with spaces and punctuation!?",
		"unicode: приветствие, 你好, émoji 🙂",
		strings.Repeat("x", 4096),
	} {
		env, err := EncryptText(text)
		require.NoError(t, err)
		require.NotEmpty(t, env)
		assert.NotContains(t, env, text)

		got, err := DecryptText(env)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestEmptyText(t *testing.T) {
	env, err := EncryptText("")
	require.NoError(t, err)
	assert.Empty(t, env)

	got, err := DecryptText("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnvelopeShape(t *testing.T) {
	env, err := EncryptText("shape check")
	require.NoError(t, err)

	parts := strings.Split(env, ":")
	require.Len(t, parts, 3)

	nonce, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestNonceUniqueness(t *testing.T) {
	a, err := EncryptText("same plaintext")
	require.NoError(t, err)
	b, err := EncryptText("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptMalformed(t *testing.T) {
	for name, env := range map[string]string{
		"two fields":    "aabb:ccdd",
		"four fields":   "aa:bb:cc:dd",
		"not hex":       "zz:yy:xx",
		"short nonce":   "aabb:" + strings.Repeat("ab", 16) + ":aabb",
		"short tag":     strings.Repeat("ab", 12) + ":aabb:aabb",
		"no separators": "deadbeef",
	} {
		_, err := DecryptText(env)
		assert.ErrorIs(t, err, ErrMalformedEnvelope, name)
	}
}

func TestDecryptTampered(t *testing.T) {
	env, err := EncryptText("integrity matters")
	require.NoError(t, err)
	parts := strings.Split(env, ":")
	require.Len(t, parts, 3)

	flip := func(s string) string {
		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	// Flipped ciphertext bit.
	_, err = DecryptText(parts[0] + ":" + parts[1] + ":" + flip(parts[2]))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// Flipped tag bit.
	_, err = DecryptText(parts[0] + ":" + flip(parts[1]) + ":" + parts[2])
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
