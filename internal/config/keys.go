package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "REFRAME_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "REFRAME_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "gemini.model", typ: kString, env: "REFRAME_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.base_url", typ: kString, env: "REFRAME_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "REFRAME_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "REFRAME_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "secret.passphrase", typ: kString, env: "REFRAME_ENCRYPTION_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Secret.Passphrase = v.(string) },
		extract: func(cfg Config) any { return cfg.Secret.Passphrase },
	},
	{
		key: "miniapp.root_url", typ: kString, env: "REFRAME_MINIAPP_ROOT_URL",
		apply:   func(cfg *Config, v any) { cfg.MiniApp.RootURL = v.(string) },
		extract: func(cfg Config) any { return cfg.MiniApp.RootURL },
	},
	{
		key: "miniapp.account_header", typ: kString, env: "REFRAME_FARCASTER_HEADER",
		apply:   func(cfg *Config, v any) { cfg.MiniApp.AccountHeader = v.(string) },
		extract: func(cfg Config) any { return cfg.MiniApp.AccountHeader },
	},
	{
		key: "miniapp.account_payload", typ: kString, env: "REFRAME_FARCASTER_PAYLOAD",
		apply:   func(cfg *Config, v any) { cfg.MiniApp.AccountPayload = v.(string) },
		extract: func(cfg Config) any { return cfg.MiniApp.AccountPayload },
	},
	{
		key: "miniapp.account_signature", typ: kString, env: "REFRAME_FARCASTER_SIGNATURE",
		apply:   func(cfg *Config, v any) { cfg.MiniApp.AccountSignature = v.(string) },
		extract: func(cfg Config) any { return cfg.MiniApp.AccountSignature },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
