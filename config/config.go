// Package config loads bidwar settings from an optional YAML file, a .env file
// and BIDWAR_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/minexpert/bidwar/anonymity"
	"github.com/minexpert/bidwar/engine"
	"github.com/minexpert/bidwar/logger"
)

// EnvPrefix is prepended to every environment override, e.g. BIDWAR_LOG_LEVEL.
const EnvPrefix = "BIDWAR"

const (
	SchemeRolling = "rolling"
	SchemeKeyed   = "keyed"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Anonymity AnonymityConfig `mapstructure:"anonymity"`
	Expertise ExpertiseConfig `mapstructure:"expertise"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EngineConfig struct {
	StrictTimeline   bool `mapstructure:"strict_timeline"`
	SubscriberBuffer int  `mapstructure:"subscriber_buffer"`
}

type AnonymityConfig struct {
	Scheme string `mapstructure:"scheme"`
	Key    string `mapstructure:"key"` // hex, required for the keyed scheme
}

type ExpertiseConfig struct {
	// Consultants maps consultant ID to specialization. Viper lowercases map keys;
	// lookups fold case to match (expertise.FoldedDirectory).
	Consultants map[string]string `mapstructure:"consultants"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty disables recording.
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	// Address of the Redis server. Empty disables the feed and expertise cache.
	Address       string        `mapstructure:"address"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	ChannelPrefix string        `mapstructure:"channel_prefix"`
	ExpertiseTTL  time.Duration `mapstructure:"expertise_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Address != "" }

// NewScheme builds the anonymous ID suffix scheme the config selects.
func (c AnonymityConfig) NewScheme() (anonymity.Scheme, error) {
	switch c.Scheme {
	case SchemeRolling:
		return anonymity.RollingScheme{}, nil
	case SchemeKeyed:
		keys, err := anonymity.KeyManagerFromHex(c.Key)
		if err != nil {
			return nil, err
		}
		return anonymity.NewKeyedScheme(keys), nil
	}
	return nil, fmt.Errorf("unknown anonymity scheme %q", c.Scheme)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("engine.strict_timeline", false)
	v.SetDefault("engine.subscriber_buffer", engine.DefaultSubscriberBuffer)
	v.SetDefault("anonymity.scheme", SchemeRolling)
	v.SetDefault("anonymity.key", "")
	v.SetDefault("expertise.consultants", map[string]string{})
	v.SetDefault("store.path", "")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel_prefix", "bidwar:project:")
	v.SetDefault("redis.expertise_ttl", "10m")
}

// Load reads configuration. path names a YAML file; when empty, bidwar.yaml is
// looked up in the working directory and skipped if absent. envFiles are loaded
// with godotenv before the environment is read; missing files are ignored.
// With no envFiles, .env is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("bidwar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		problems = append(problems, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Engine.SubscriberBuffer < 1 {
		problems = append(problems, "engine.subscriber_buffer must be at least 1")
	}
	if _, err := c.Anonymity.NewScheme(); err != nil {
		problems = append(problems, "anonymity: "+err.Error())
	}
	if c.Redis.DB < 0 {
		problems = append(problems, "redis.db must not be negative")
	}
	if c.Redis.ExpertiseTTL < 0 {
		problems = append(problems, "redis.expertise_ttl must not be negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
