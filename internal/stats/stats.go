package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/reframe/internal/storage"
)

// Item is the local item the statistics JSON blob lives under.
const Item = "reframe_caster_statistics"

// Statistics counts analyses by outcome.
type Statistics struct {
	TotalAnalyses int `json:"totalAnalyses"`
	NegativeCount int `json:"negativeCount"`
	PositiveCount int `json:"positiveCount"`
}

// ItemStore is the subset of storage.Store the tracker needs.
type ItemStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Tracker reads and updates the persisted counters. Each call is a
// read-modify-write against storage; callers serialize their own actions.
type Tracker struct {
	items ItemStore
}

// NewTracker creates a Tracker persisting through items.
func NewTracker(items ItemStore) *Tracker {
	return &Tracker{items: items}
}

// Load returns the persisted counters. Absent or unreadable data reads as zero.
func (t *Tracker) Load() Statistics {
	raw, err := t.items.GetItem(Item)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to load statistics", "error", err)
		}
		return Statistics{}
	}

	var s Statistics
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		slog.Warn("failed to parse statistics", "error", err)
		return Statistics{}
	}
	return s
}

// Record counts one analysis and persists the result.
func (t *Tracker) Record(isNegative bool) (Statistics, error) {
	s := t.Load()
	s.TotalAnalyses++
	if isNegative {
		s.NegativeCount++
	} else {
		s.PositiveCount++
	}

	data, err := json.Marshal(s)
	if err != nil {
		return Statistics{}, fmt.Errorf("marshaling statistics: %w", err)
	}
	if err := t.items.SetItem(Item, string(data)); err != nil {
		return Statistics{}, fmt.Errorf("saving statistics: %w", err)
	}
	return s, nil
}

// Reset zeroes the counters by removing the persisted blob.
func (t *Tracker) Reset() error {
	if err := t.items.RemoveItem(Item); err != nil {
		return fmt.Errorf("removing statistics: %w", err)
	}
	return nil
}

// NegativeRatio is the share of analyses flagged negative, or 0 with no data.
func (s Statistics) NegativeRatio() float64 {
	if s.TotalAnalyses == 0 {
		return 0
	}
	return float64(s.NegativeCount) / float64(s.TotalAnalyses)
}
