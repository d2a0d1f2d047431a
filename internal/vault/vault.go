// Package vault encrypts per-application signing secrets at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MasterKeySize is the AES-256 key length in bytes.
	MasterKeySize = 32
	// SecretSize is the length in bytes of a generated application secret.
	SecretSize = 64

	ivSize    = 12
	tagSize   = 16
	separator = ":"
)

var (
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrDecrypt             = errors.New("ciphertext authentication failed")
)

// Vault seals values with AES-256-GCM under a single master key. The
// serialized form is hex(iv):hex(body):hex(tag).
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a hex encoded 32 byte master key.
func New(masterKeyHex string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(masterKeyHex))
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", MasterKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random IV.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(body),
		hex.EncodeToString(tag),
	}, separator), nil
}

// Decrypt opens a value produced by Encrypt. Any tampering with one of the
// segments makes it fail.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, separator)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedCiphertext, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrMalformedCiphertext, err)
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: body: %v", ErrMalformedCiphertext, err)
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: tag: %v", ErrMalformedCiphertext, err)
	}
	if len(iv) != ivSize || len(tag) != tagSize {
		return "", fmt.Errorf("%w: bad iv or tag length", ErrMalformedCiphertext)
	}

	plaintext, err := v.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plaintext), nil
}

// GenerateSecret returns SecretSize random bytes, hex encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, SecretSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewSealedSecret generates a secret and returns only its ciphertext.
func (v *Vault) NewSealedSecret() (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	return v.Encrypt(secret)
}
