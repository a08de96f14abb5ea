//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.reframe.app"

// defaultDataDir holds reframe.db, the local key and statistics store.
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "reframe")
	}
	return "reframe-data"
}

// userDefaults shells out to defaults(1). Keys are stored under their dotted
// names, e.g. `defaults read com.reframe.app gemini.model`.
type userDefaults struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return userDefaults{domain: defaultsDomain}
}

func (d userDefaults) run(verb, key string, extra ...string) (string, error) {
	args := append([]string{verb, d.domain, key}, extra...)
	out, err := exec.Command("defaults", args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (d userDefaults) GetString(key string) (string, bool, error) {
	out, err := d.run("read", key)
	if err != nil {
		// defaults exits 1 when the key or the whole domain is absent.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s %s: %w (%s)", d.domain, key, err, out)
	}
	return out, true, nil
}

func (d userDefaults) GetInt(key string) (int, bool, error) {
	s, ok, err := d.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s in %s is not an integer: %w", key, d.domain, err)
	}
	return n, true, nil
}

func (d userDefaults) SetString(key, val string) error {
	return d.write(key, "-string", val)
}

func (d userDefaults) SetInt(key string, val int) error {
	return d.write(key, "-int", strconv.Itoa(val))
}

func (d userDefaults) write(key, typ, val string) error {
	if out, err := d.run("write", key, typ, val); err != nil {
		return fmt.Errorf("defaults write %s %s: %w (%s)", d.domain, key, err, out)
	}
	return nil
}

// Delete treats an already absent key as removed so `config unset` is idempotent.
func (d userDefaults) Delete(key string) error {
	if _, ok, err := d.GetString(key); err != nil || !ok {
		return err
	}
	if out, err := d.run("delete", key); err != nil {
		return fmt.Errorf("defaults delete %s %s: %w (%s)", d.domain, key, err, out)
	}
	return nil
}
