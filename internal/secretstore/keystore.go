package secretstore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/reframe/internal/storage"
)

// APIKeyItem is the local item the encrypted Gemini API key lives under.
const APIKeyItem = "gemini_api_key_secure"

// ItemStore is the subset of storage.Store the key store needs.
type ItemStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// KeyStore keeps the user's API key encrypted in local storage.
type KeyStore struct {
	items  ItemStore
	cipher *Cipher
}

// NewKeyStore creates a KeyStore persisting through items.
func NewKeyStore(items ItemStore, c *Cipher) *KeyStore {
	return &KeyStore{items: items, cipher: c}
}

// Save trims key, encrypts it and persists the envelope. It reports false
// without touching storage when key is blank.
func (k *KeyStore) Save(key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}

	encrypted, err := k.cipher.Encrypt(key)
	if err != nil {
		return false, fmt.Errorf("encrypting api key: %w", err)
	}
	if err := k.items.SetItem(APIKeyItem, encrypted); err != nil {
		return false, fmt.Errorf("persisting api key: %w", err)
	}
	return true, nil
}

// Load returns the stored key and whether one is present. Missing,
// unreadable, corrupt, or tampered entries all read as absent.
func (k *KeyStore) Load() (string, bool) {
	encrypted, err := k.items.GetItem(APIKeyItem)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to read stored api key", "error", err)
		}
		return "", false
	}

	key := k.cipher.Decrypt(encrypted)
	if key == "" {
		return "", false
	}
	return key, true
}

// Clear removes the stored key.
func (k *KeyStore) Clear() error {
	if err := k.items.RemoveItem(APIKeyItem); err != nil {
		return fmt.Errorf("removing api key: %w", err)
	}
	return nil
}
