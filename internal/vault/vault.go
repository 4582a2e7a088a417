package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Vault encrypts API keys at rest and fingerprints them for lookups.
// Plaintext keys exist only transiently in memory around an upstream call.
type Vault struct {
	aead cipher.AEAD
}

// New derives an AES-256-GCM vault from the configured secret. The secret is
// hashed so any string of reasonable length works as a key.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is empty")
	}
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce||ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (v *Vault) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	ns := v.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	plain, err := v.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// Fingerprint returns a stable SHA-256 hash of the key, used as the lookup
// column so plaintext is never stored or compared.
func Fingerprint(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Mask renders a key for display: first 7 characters, 8 asterisks, last 4.
// Keys of 11 characters or fewer are returned unchanged since there is
// nothing left to hide after prefix and suffix.
func Mask(key string) string {
	if len(key) <= 11 {
		return key
	}
	return key[:7] + strings.Repeat("*", 8) + key[len(key)-4:]
}
