package config

import (
	"errors"
	"flag"
	"fmt"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	envPrefix = "CONNEX_"
	// passkey value shipped in provider sandbox samples
	placeholderPasskey = "YourSTKPushPassKey"
)

var defaults = map[string]interface{}{
	"server.addr":             ":8080",
	"server.read_timeout":     "10s",
	"server.write_timeout":    "30s",
	"server.shutdown_timeout": "15s",
	"log.level":               "info",
	"log.max_size_mb":         50,
	"log.max_backups":         3,
	"log.max_age_days":        7,
	"mpesa.base_url":          "https://sandbox.safaricom.co.ke",
	"mpesa.timeout":           "10s",
	"sms.base_url":            "https://api.sandbox.africastalking.com",
	"sms.store_name":          "Connex Creative",
	"sms.timeout":             "10s",
	"sms.rate_per_second":     5.0,
	"sms.burst":               1,
	"redis.db":                0,
	"sweep.schedule":          "@every 1h",
	"sweep.grace_period":      "48h",
	"sweep.timeout":           "5m",
}

// plain environment names, kept for existing deployments
var plainEnv = map[string]string{
	"RUN_ADDRESS":           "server.addr",
	"DATABASE_URI":          "database.dsn",
	"LOG_LEVEL":             "log.level",
	"JWT_SECRET":            "auth.jwt_secret",
	"MPESA_CONSUMER_KEY":    "mpesa.consumer_key",
	"MPESA_CONSUMER_SECRET": "mpesa.consumer_secret",
	"MPESA_SHORTCODE":       "mpesa.short_code",
	"MPESA_PASSKEY":         "mpesa.passkey",
	"MPESA_CALLBACK_URL":    "mpesa.callback_url",
	"AT_API_KEY":            "sms.api_key",
	"AT_USERNAME":           "sms.username",
	"REDIS_ADDR":            "redis.addr",
}

type Config struct {
	Server struct {
		Addr            string        `koanf:"addr"`
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"server"`

	Database struct {
		DSN string `koanf:"dsn"`
	} `koanf:"database"`

	Log struct {
		Level      string `koanf:"level"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
		MaxAgeDays int    `koanf:"max_age_days"`
	} `koanf:"log"`

	Auth struct {
		JWTSecret string `koanf:"jwt_secret"`
	} `koanf:"auth"`

	Mpesa struct {
		BaseURL        string        `koanf:"base_url"`
		ConsumerKey    string        `koanf:"consumer_key"`
		ConsumerSecret string        `koanf:"consumer_secret"`
		ShortCode      string        `koanf:"short_code"`
		Passkey        string        `koanf:"passkey"`
		CallbackURL    string        `koanf:"callback_url"`
		Timeout        time.Duration `koanf:"timeout"`
	} `koanf:"mpesa"`

	SMS struct {
		BaseURL       string        `koanf:"base_url"`
		APIKey        string        `koanf:"api_key"`
		Username      string        `koanf:"username"`
		SenderID      string        `koanf:"sender_id"`
		StoreName     string        `koanf:"store_name"`
		Timeout       time.Duration `koanf:"timeout"`
		RatePerSecond float64       `koanf:"rate_per_second"`
		Burst         int           `koanf:"burst"`
	} `koanf:"sms"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Sweep struct {
		Schedule    string        `koanf:"schedule"`
		GracePeriod time.Duration `koanf:"grace_period"`
		Timeout     time.Duration `koanf:"timeout"`
	} `koanf:"sweep"`
}

var (
	once      sync.Once
	singleton *Config
	loadErr   error
)

// New returns new Config. It parses command line, config file and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		singleton, loadErr = Load(flag.CommandLine, os.Args[1:])
	})

	return singleton, loadErr
}

// Load builds Config from defaults, optional yaml file, environment and flags.
// Later sources override earlier ones.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	var (
		configFile string
		addr       string
		dsn        string
		logLevel   string
	)

	// initialize flags
	fs.StringVar(&configFile, "c", os.Getenv("CONFIG_FILE"), "yaml config file")
	fs.StringVar(&addr, "a", "", "server address")
	fs.StringVar(&dsn, "d", "", "database DSN")
	fs.StringVar(&logLevel, "l", "", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	for name, key := range plainEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	// e.g. CONNEX_MPESA__CONSUMER_KEY, CONNEX_SWEEP__GRACE_PERIOD
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	// if flag is set, then using it
	flagKeys := map[string]string{"a": "server.addr", "d": "database.dsn", "l": "log.level"}
	flagValues := map[string]string{"a": addr, "d": dsn, "l": logLevel}
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && setErr == nil {
			setErr = k.Set(key, flagValues[f.Name])
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr required"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret required"))
	}
	if c.Mpesa.Passkey == placeholderPasskey {
		errs = append(errs, errors.New("mpesa.passkey is still set to placeholder"))
	}
	if c.Sweep.GracePeriod <= 0 {
		errs = append(errs, errors.New("sweep.grace_period must be positive"))
	}
	return errors.Join(errs...)
}
