package config

// ConfigBackend persists the non-secret settings that `reframe config set`
// writes: server address, Gemini model and endpoint, data directory, log
// level and the mini-app manifest fields. Secrets such as the encryption
// passphrase never reach a backend; they come from the environment only.
//
// On macOS settings live in UserDefaults under com.reframe.app. Elsewhere
// they live in a flat JSON object at $XDG_CONFIG_HOME/reframe/config.json.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
