// Package encryption encrypts and decrypts chat message text at rest.
// Ciphertext is stored as a single "nonceHex:tagHex:cipherHex" envelope
// so a message row stays one opaque string column.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const (
	keySalt  = "taskhub-chat-salt"
	keyLen   = 32 // AES-256
	nonceLen = 12 // recommended nonce size for GCM
	tagLen   = 16
	scryptN  = 32768
	scryptR  = 8
	scryptP  = 1
)

var (
	// ErrMalformedEnvelope means the stored value is not a valid
	// three-field envelope. Fatal for that single message only.
	ErrMalformedEnvelope = errors.New("encryption: malformed envelope")

	// ErrAuthenticationFailed means the GCM tag check failed: the
	// ciphertext was tampered with or corrupted.
	ErrAuthenticationFailed = errors.New("encryption: authentication failed")

	keyOnce sync.Once
	key     []byte
	keyErr  error
	secret  string
	mu      sync.Mutex
)

// SetSecret configures the secret the process-wide key is derived from.
// Must be called before the first Encrypt/Decrypt; later calls are
// ignored once the key has been derived.
func SetSecret(s string) {
	mu.Lock()
	secret = s
	mu.Unlock()
}

// deriveKey runs scrypt once per process. Derivation is deliberately
// expensive; the derived key is cached and read-only afterwards, so
// concurrent use needs no further synchronization.
func deriveKey() ([]byte, error) {
	keyOnce.Do(func() {
		mu.Lock()
		s := secret
		mu.Unlock()
		if s == "" {
			keyErr = errors.New("encryption: secret is not set")
			return
		}
		key, keyErr = scrypt.Key([]byte(s), []byte(keySalt), scryptN, scryptR, scryptP, keyLen)
	})
	return key, keyErr
}

func newGCM() (cipher.AEAD, error) {
	k, err := deriveKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("encryption: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLen)
	if err != nil {
		return nil, fmt.Errorf("encryption: new gcm: %w", err)
	}
	return gcm, nil
}

// EncryptText encrypts plaintext into an envelope. Empty input returns
// an empty envelope and no error: a message without text is
// attachment-only, not invalid.
func EncryptText(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encryption: nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal appends the tag after the ciphertext; the envelope stores
	// them as separate fields.
	ct := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// DecryptText decrypts an envelope produced by EncryptText. An empty
// envelope yields empty text. Returns ErrMalformedEnvelope or
// ErrAuthenticationFailed for bad records; callers must treat either as
// scoped to that one message.
func DecryptText(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", ErrMalformedEnvelope
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLen {
		return "", ErrMalformedEnvelope
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLen {
		return "", ErrMalformedEnvelope
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedEnvelope
	}
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plain), nil
}
