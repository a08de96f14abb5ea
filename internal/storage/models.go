package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Item is a single key/value pair held in the local item table. It plays the
// role browser local storage plays for a web client: flat, string-valued,
// unscoped beyond the data directory it lives in.
type Item struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
