// Package crypto provides encryption for configuration secrets.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"sync"
)

var (
	// ErrInvalidKey is returned when the encryption key is not 32 bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")
	// ErrInvalidCiphertext is returned when the ciphertext cannot be decoded.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Encryptor encrypts and decrypts secrets with AES-256-GCM.
type Encryptor struct {
	key []byte
}

// NewEncryptor creates an encryptor from a 32-byte key.
func NewEncryptor(key string) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return &Encryptor{key: []byte(key)}, nil
}

var (
	defaultEncryptor *Encryptor
	once             sync.Once
)

// Initialize sets up the package-level encryptor with the given key.
func Initialize(key string) error {
	enc, err := NewEncryptor(key)
	if err != nil {
		return err
	}
	once.Do(func() {
		defaultEncryptor = enc
	})
	return nil
}

// Encrypt encrypts plaintext and returns a base64-encoded ciphertext.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e == nil || len(e.key) == 0 {
		// No key configured: store as-is. Deployments without an
		// encryption key keep working, just without at-rest protection.
		return plaintext, nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values that do not decode or decrypt are
// returned unchanged, so rows written before encryption was enabled stay
// readable.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if e == nil || len(e.key) == 0 {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext, nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return ciphertext, nil
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ciphertext, nil
	}

	return string(plaintext), nil
}

// Encrypt encrypts using the package-level encryptor.
func Encrypt(plaintext string) (string, error) {
	return defaultEncryptor.Encrypt(plaintext)
}

// Decrypt decrypts using the package-level encryptor.
func Decrypt(ciphertext string) (string, error) {
	return defaultEncryptor.Decrypt(ciphertext)
}

// IsInitialized reports whether the package-level encryptor has a key.
func IsInitialized() bool {
	return defaultEncryptor != nil && len(defaultEncryptor.key) > 0
}
