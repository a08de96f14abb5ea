package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/kalambet/reframe/internal/refine"
	"github.com/kalambet/reframe/internal/secretstore"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Log     LogConfig
	Secret  SecretConfig
	MiniApp MiniAppConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GeminiConfig struct {
	Model   string
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// SecretConfig holds the passphrase local secrets are derived from. It is a
// deploy-wide constant, not a per-user secret.
type SecretConfig struct {
	Passphrase string
}

type MiniAppConfig struct {
	RootURL          string
	AccountHeader    string
	AccountPayload   string
	AccountSignature string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Gemini: GeminiConfig{
			Model: refine.DefaultModel,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Secret: SecretConfig{
			Passphrase: secretstore.DefaultPassphrase,
		},
		MiniApp: MiniAppConfig{
			RootURL: "http://localhost:3000",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.reframe.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/reframe/config.json.
//
// Environment variables (REFRAME_*) override backend values on all platforms.
// Secrets are read from the environment only.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}
	if cfg.Gemini.Model == "" {
		return Config{}, fmt.Errorf("missing required config: gemini.model")
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BaseURL returns the URL local clients use to reach the HTTP server.
func (c Config) BaseURL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}
