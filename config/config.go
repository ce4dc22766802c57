package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/edge-gateway/internal/strategy"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// minSecretLength is 256 bits, the HS256 key size.
const minSecretLength = 32

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Environment  string        `mapstructure:"environment"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type HealthCheckConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Path     string        `mapstructure:"path"`
}

type AuthConfig struct {
	Secret            string        `mapstructure:"secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	ClientID          string        `mapstructure:"client_id"`
	ProtectedPrefixes []string      `mapstructure:"protected_prefixes"`
}

type BreakerRouteConfig struct {
	Prefix string `mapstructure:"prefix"`
	Key    string `mapstructure:"key"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int                  `mapstructure:"failure_threshold"`
	Cooldown         time.Duration        `mapstructure:"cooldown"`
	FailureStatus    int                  `mapstructure:"failure_status"`
	Routes           []BreakerRouteConfig `mapstructure:"routes"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type BackendConfig struct {
	URL    string `mapstructure:"url"`
	Weight int    `mapstructure:"weight"`
}

type RouteConfig struct {
	Prefix       string          `mapstructure:"prefix"`
	UpstreamPath string          `mapstructure:"upstream_path"`
	Strategy     string          `mapstructure:"strategy"`
	Backends     []BackendConfig `mapstructure:"backends"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
	Auth           AuthConfig           `mapstructure:"auth"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Routes         []RouteConfig        `mapstructure:"routes"`
}

// Load reads config.yaml from the given directories (./config and . by
// default), overlaid with environment variables such as AUTH_SECRET. A .env
// file in any of those directories is loaded into the environment first.
func Load(dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = []string{"./config", "."}
	}

	for _, dir := range dirs {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to read .env file", slog.String("dir", dir), slog.String("error", err.Error()))
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("health_check.interval", "2s")
	v.SetDefault("health_check.path", "/health")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "1m")
	v.SetDefault("auth.client_id", "user-demo")

	v.SetDefault("circuit_breaker.failure_threshold", 3)
	v.SetDefault("circuit_breaker.cooldown", "10s")
	v.SetDefault("circuit_breaker.failure_status", 500)

	v.SetDefault("metrics.buffer_size", 1000)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Min(time.Duration(0))),
					validation.Field(&sc.WriteTimeout, validation.Min(time.Duration(0))),
					validation.Field(&sc.IdleTimeout, validation.Min(time.Duration(0))),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.MaxSize, validation.Min(0)),
					validation.Field(&lc.MaxBackups, validation.Min(0)),
					validation.Field(&lc.MaxAge, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.Min(time.Millisecond),
					),
					validation.Field(&hc.Path,
						validation.Required,
						validation.By(validatePathPrefix),
					),
				)
			}),
		),
		validation.Field(&c.Auth,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AuthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AuthConfig")
				}
				protected := len(ac.ProtectedPrefixes) > 0
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Secret,
						validation.When(protected, validation.Required, validation.Length(minSecretLength, 0)),
					),
					validation.Field(&ac.TokenTTL, validation.Min(time.Duration(0))),
					validation.Field(&ac.ClientID, validation.When(protected, validation.Required)),
					validation.Field(&ac.ProtectedPrefixes, validation.Each(validation.By(validatePathPrefix))),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.By(func(value interface{}) error {
				cb, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cb,
					validation.Field(&cb.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&cb.Cooldown, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&cb.FailureStatus, validation.Required, validation.Min(100), validation.Max(599)),
					validation.Field(&cb.Routes, validation.Each(validation.By(validateBreakerRoute))),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Routes,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateRouteConfig)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePathPrefix(value interface{}) error {
	prefix, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if !strings.HasPrefix(prefix, "/") {
		return validation.NewError("validation_invalid_prefix", "must start with /")
	}

	return nil
}

func validateBreakerRoute(value interface{}) error {
	route, ok := value.(BreakerRouteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BreakerRouteConfig")
	}

	return validation.ValidateStruct(&route,
		validation.Field(&route.Prefix, validation.Required, validation.By(validatePathPrefix)),
	)
}

func validateRouteConfig(value interface{}) error {
	route, ok := value.(RouteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RouteConfig")
	}

	return validation.ValidateStruct(&route,
		validation.Field(&route.Prefix, validation.Required, validation.By(validatePathPrefix)),
		validation.Field(&route.UpstreamPath, validation.By(func(value interface{}) error {
			if s, _ := value.(string); s == "" {
				return nil
			}
			return validatePathPrefix(value)
		})),
		validation.Field(&route.Strategy, validation.In(
			strategy.RoundRobin,
			strategy.Random,
			strategy.LeastConn,
			strategy.LeastResponse,
			strategy.WeightedRoundRobin,
		)),
		validation.Field(&route.Backends,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateBackendConfig)),
		),
	)
}

func validateBackendConfig(value interface{}) error {
	backend, ok := value.(BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackendConfig")
	}

	if backend.URL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	parsedURL, err := url.Parse(backend.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if backend.Weight < 0 {
		return validation.NewError("validation_invalid_weight", "weight cannot be negative")
	}

	return nil
}
