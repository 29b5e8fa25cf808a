package command

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/spec-kit/giftcard-platform/internal/config"
)

// EnvPrefix scopes the environment variables read by authctl.
// AUTHCTL_AUTH_SECRET maps to auth.secret.
const EnvPrefix = "AUTHCTL_"

// Settings is the authctl configuration.
type Settings struct {
	Auth  AuthSettings  `koanf:"auth"`
	Store StoreSettings `koanf:"store"`
}

// AuthSettings mirrors the AUTH_* values the auth service reads.
type AuthSettings struct {
	Secret  string `koanf:"secret"`
	KID     string `koanf:"kid"`
	Keyring string `koanf:"keyring"`
	TTL     int    `koanf:"ttl"`
	Hasher  string `koanf:"hasher"`
	Cost    int    `koanf:"cost"`
}

// StoreSettings selects the account store for seeding.
type StoreSettings struct {
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	Prefix   string `koanf:"prefix"`
	Dir      string `koanf:"dir"`
}

func defaultSettings() Settings {
	return Settings{
		Auth: AuthSettings{
			Secret: "dev-secret",
			KID:    "primary",
			TTL:    60,
			Hasher: "bcrypt",
			Cost:   10,
		},
		Store: StoreSettings{
			Driver: config.StoreMemory,
			Addr:   "127.0.0.1:6379",
			Prefix: "giftcard",
			Dir:    "data/accounts",
		},
	}
}

// LoadSettings layers an optional YAML file and AUTHCTL_* variables over the
// defaults. Later sources win.
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	s := defaultSettings()
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.Store.Driver = strings.ToLower(s.Store.Driver)
	return &s, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "_", ".")
}

// AuthConfig converts the settings into the service configuration type.
func (s *Settings) AuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             s.Auth.Secret,
		JWTKeyID:              s.Auth.KID,
		KeyringFile:           s.Auth.Keyring,
		AccessTokenTTLMinutes: s.Auth.TTL,
		BcryptCost:            s.Auth.Cost,
		PasswordHasher:        s.Auth.Hasher,
	}
}
