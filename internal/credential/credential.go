// Package credential encrypts API keys before they are written to the
// configuration table. Values are sealed with AES-256-GCM under a key
// derived with HKDF from machine and user identifiers.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// EncryptedPrefix marks values as encrypted in storage
	EncryptedPrefix = "enc:v1:"

	// SecretSuffix marks configuration keys whose values are encrypted.
	SecretSuffix = ".api_key"

	keySize = 32
)

var (
	hkdfSalt = []byte("recall-credential-salt-v1")
	hkdfInfo = []byte("recall configuration secrets")
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidFormat    = errors.New("invalid encrypted format")
)

// Manager handles secure storage and retrieval of credentials.
type Manager struct {
	key []byte
}

// NewManager creates a manager whose key is bound to this machine and user.
func NewManager() (*Manager, error) {
	return NewManagerWithSecret(machineSecret())
}

// NewManagerWithSecret derives the encryption key from secret.
func NewManagerWithSecret(secret []byte) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("credential secret is empty")
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, hkdfSalt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return &Manager{key: key}, nil
}

func (m *Manager) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(m.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts a plaintext value and returns a storable string.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := m.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a stored value. Values without the prefix are returned
// unchanged so hand-edited plaintext keys keep working.
func (m *Manager) Decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if !IsEncrypted(stored) {
		return stored, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrInvalidFormat, err)
	}

	gcm, err := m.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrInvalidFormat
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsEncrypted checks if a value is already encrypted.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// IsSecretKey reports whether a configuration key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, SecretSuffix)
}

func machineSecret() []byte {
	var sb strings.Builder
	hostname, _ := os.Hostname()
	sb.WriteString(hostname)
	home, _ := os.UserHomeDir()
	sb.WriteString(home)
	sb.WriteString(runtime.GOOS)
	sb.WriteString(runtime.GOARCH)
	if uid := os.Getuid(); uid != -1 {
		fmt.Fprintf(&sb, "uid:%d", uid)
	}
	if username := os.Getenv("USER"); username != "" {
		sb.WriteString(username)
	}
	return []byte(sb.String())
}

// MaskSecret returns a masked version of a secret for display purposes.
// Shows only the first and last 4 characters if the secret is long enough.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
