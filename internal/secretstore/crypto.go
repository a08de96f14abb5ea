package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"
)

// Envelope layout: salt ‖ nonce ‖ ciphertext+tag, base64 (std) encoded.
const (
	SaltSize   = 16
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100_000

	tagSize = 16
)

// DefaultPassphrase is the build-time passphrase used when none is configured.
// Anyone holding the binary can derive the same keys from it; see DESIGN.md.
const DefaultPassphrase = "reframe-caster-secure-storage-key"

// Cipher encrypts short secrets with AES-256-GCM under a key derived from a
// static passphrase with PBKDF2-HMAC-SHA256 and a per-message random salt.
type Cipher struct {
	passphrase []byte
	iterations int
	rand       io.Reader
}

// NewCipher returns a Cipher for passphrase. An empty passphrase selects
// DefaultPassphrase.
func NewCipher(passphrase string) *Cipher {
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	return &Cipher{
		passphrase: []byte(passphrase),
		iterations: Iterations,
		rand:       rand.Reader,
	}
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.passphrase, salt, c.iterations, KeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating block cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with a fresh salt and nonce and returns the
// base64 envelope.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	buf := make([]byte, SaltSize+NonceSize)
	if _, err := io.ReadFull(c.rand, buf); err != nil {
		return "", fmt.Errorf("reading random salt and nonce: %w", err)
	}
	salt, nonce := buf[:SaltSize], buf[SaltSize:]

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	packed := gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(packed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure (bad base64,
// short input, wrong passphrase, tampering) yields "" so callers treat the
// secret as absent.
func (c *Cipher) Decrypt(encoded string) string {
	packed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Debug("secret envelope is not valid base64", "error", err)
		return ""
	}
	if len(packed) < SaltSize+NonceSize+tagSize {
		slog.Debug("secret envelope too short", "len", len(packed))
		return ""
	}

	salt := packed[:SaltSize]
	nonce := packed[SaltSize : SaltSize+NonceSize]
	sealed := packed[SaltSize+NonceSize:]

	gcm, err := c.aead(salt)
	if err != nil {
		slog.Debug("deriving secret key failed", "error", err)
		return ""
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		slog.Debug("secret authentication failed", "error", err)
		return ""
	}
	return string(plaintext)
}
