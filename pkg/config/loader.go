package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"address":   "server.address",
	"log-level": "log.level",
	"seed":      "store.seedFile",
}

// Load reads configuration from defaults, an optional YAML file, TABLESYNC_
// environment variables and command line flags, in increasing precedence.
// An empty path looks for tablesync.yaml in the working directory.
func Load(logger *slog.Logger, path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.connectionLimit.maxPerIP", 0)
	v.SetDefault("server.connectionLimit.mode", "reject")
	v.SetDefault("transport.readTimeout", "60s")
	v.SetDefault("transport.sendQueue", 256)
	v.SetDefault("auth.mode", AuthModeMemory)
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("dispatch.rateLimit", "")
	v.SetDefault("store.seedFile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tablesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TABLESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Warn("Config file not found, relying on defaults and environment")
	} else {
		logger.Info("Loaded config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Server.ConnectionLimit.Mode {
	case "reject", "cycle":
	default:
		return fmt.Errorf("invalid connectionLimit mode %q", c.Server.ConnectionLimit.Mode)
	}
	switch c.Auth.Mode {
	case AuthModeMemory:
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth mode jwt requires auth.jwtSecret")
		}
	default:
		return fmt.Errorf("invalid auth mode %q", c.Auth.Mode)
	}
	if c.Transport.ReadTimeout <= 0 {
		return fmt.Errorf("transport.readTimeout must be positive, got %s", c.Transport.ReadTimeout)
	}
	if c.Transport.SendQueue < 1 {
		return fmt.Errorf("transport.sendQueue must be at least 1, got %d", c.Transport.SendQueue)
	}
	return nil
}
