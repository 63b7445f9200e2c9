package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// LDAP_SYNC_DATABASE_PASSWORD overrides database.password.
const EnvPrefix = "LDAP_SYNC"

// Load reads configuration from path (or the default search locations when
// path is empty), applies environment overrides and defaults, and validates
// the result. A .env file in the working directory is honored if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ldap-sync")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ldap-sync")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// An empty user search is far more likely a broken filter than an empty
	// directory; groups legitimately start empty.
	v.SetDefault("users.fail_on_empty", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Missing default config is fine: everything can come from the
		// environment. An explicit --config path must exist.
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, skipping rule sections that are
// disabled.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	sections := []struct {
		name    string
		enabled bool
		value   any
	}{
		{"ldap", true, c.LDAP},
		{"database", true, c.Database},
		{"logging", true, c.Logging},
		{"users", c.Users.Enabled, c.Users},
		{"groups", c.Groups.Enabled, c.Groups},
	}
	for _, s := range sections {
		if !s.enabled {
			continue
		}
		if err := v.Struct(s.value); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", s.name, err)
		}
	}

	if c.Membership.Enabled && !c.Groups.Enabled {
		return fmt.Errorf("invalid membership configuration: membership sync requires the groups section to be enabled")
	}
	return nil
}
