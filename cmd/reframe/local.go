package main

import (
	"fmt"

	"github.com/kalambet/reframe/internal/config"
	"github.com/kalambet/reframe/internal/secretstore"
	"github.com/kalambet/reframe/internal/stats"
	"github.com/kalambet/reframe/internal/storage"
)

// localState is the client's on-device storage: the encrypted API key and
// the analysis counters, both kept in the local SQLite item table.
type localState struct {
	store *storage.Store
	keys  *secretstore.KeyStore
	stats *stats.Tracker
}

var openLocal = func(cfg config.Config) (*localState, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return newLocalState(store, cfg.Secret.Passphrase), nil
}

func newLocalState(store *storage.Store, passphrase string) *localState {
	return &localState{
		store: store,
		keys:  secretstore.NewKeyStore(store, secretstore.NewCipher(passphrase)),
		stats: stats.NewTracker(store),
	}
}

func (l *localState) Close() error {
	return l.store.Close()
}
