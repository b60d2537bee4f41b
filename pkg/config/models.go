package config

import "time"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string                `mapstructure:"address"`
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

// ConnectionLimitConfig caps concurrent websocket connections per remote IP.
// MaxPerIP <= 0 disables the limit.
type ConnectionLimitConfig struct {
	MaxPerIP int    `mapstructure:"maxPerIP"`
	Mode     string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	SendQueue   int           `mapstructure:"sendQueue"`
}

const (
	AuthModeMemory = "memory"
	AuthModeJWT    = "jwt"
)

type AuthConfig struct {
	// Mode selects the session source: seeded memstore sessions or signed JWTs.
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwtSecret"`
}

type DispatchConfig struct {
	// RateLimit is "<count>/<s|m|h>" per connection. Empty disables it.
	RateLimit string `mapstructure:"rateLimit"`
}

type StoreConfig struct {
	SeedFile string `mapstructure:"seedFile"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
