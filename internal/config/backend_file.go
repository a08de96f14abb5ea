package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// jsonFileBackend keeps settings as one flat JSON object keyed by the dotted
// config names, for example {"server.port": 3000, "gemini.model": "..."}.
// The whole file is rewritten on every change.
type jsonFileBackend struct {
	path   string
	values map[string]any
}

// newFileBackend reads path once. A missing file is an empty config; an
// unreadable or malformed one is logged and treated as empty so defaults and
// REFRAME_* variables still apply.
func newFileBackend(path string) *jsonFileBackend {
	b := &jsonFileBackend{path: path, values: map[string]any{}}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		slog.Warn("ignoring unreadable config file", "path", path, "error", err)
	default:
		if err := json.Unmarshal(raw, &b.values); err != nil {
			slog.Warn("ignoring malformed config file", "path", path, "error", err)
			b.values = map[string]any{}
		}
	}
	return b
}

func (b *jsonFileBackend) flush() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(b.path, append(raw, '\n'), 0o600)
}

func (b *jsonFileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	if s, isString := v.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// GetInt accepts a JSON number or a numeric string, since hand-edited files
// often quote the port.
func (b *jsonFileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n > math.MaxInt {
			return 0, true, fmt.Errorf("%s: %v is not an integer", key, n)
		}
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T in %s", key, v, b.path)
	}
}

func (b *jsonFileBackend) SetString(key, val string) error {
	b.values[key] = val
	return b.flush()
}

func (b *jsonFileBackend) SetInt(key string, val int) error {
	b.values[key] = val
	return b.flush()
}

func (b *jsonFileBackend) Delete(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return b.flush()
}
