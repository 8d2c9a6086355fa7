package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/serialkit/pkg/serial"
)

// FileName is the configuration file name without extension
const FileName = "serialkit"

// EnvPrefix prefixes environment overrides, e.g. SERIALKIT_NAMING_SERIALIZED_KEY_STYLE
const EnvPrefix = "SERIALKIT"

// Config represents the serialkit configuration
type Config struct {
	Naming   NamingConfig   `mapstructure:"naming" yaml:"naming"`
	Encoding EncodingConfig `mapstructure:"encoding" yaml:"encoding"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// NamingConfig represents key translation settings
type NamingConfig struct {
	PropertyKeyStyle   string           `mapstructure:"property_key_style" yaml:"property_key_style"`
	SerializedKeyStyle string           `mapstructure:"serialized_key_style" yaml:"serialized_key_style"`
	Redirects          []RedirectConfig `mapstructure:"redirects" yaml:"redirects,omitempty"`
}

// RedirectConfig pins one attribute to one wire key
type RedirectConfig struct {
	Property string `mapstructure:"property" yaml:"property"`
	Key      string `mapstructure:"key" yaml:"key"`
}

// EncodingConfig represents value encoding settings
type EncodingConfig struct {
	DateLayout  string `mapstructure:"date_layout" yaml:"date_layout"`
	CyclePolicy string `mapstructure:"cycle_policy" yaml:"cycle_policy"`
	MaxDepth    int    `mapstructure:"max_depth" yaml:"max_depth"`
	Strict      bool   `mapstructure:"strict" yaml:"strict"`
}

// StoreConfig represents persistence settings
type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver,omitempty"`
	DSN         string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Table       string `mapstructure:"table" yaml:"table,omitempty"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Naming: NamingConfig{
			PropertyKeyStyle:   serial.MatchCase.String(),
			SerializedKeyStyle: serial.MatchCase.String(),
		},
		Encoding: EncodingConfig{
			DateLayout:  serial.DefaultDateLayout,
			CyclePolicy: serial.CycleOmit.String(),
			MaxDepth:    serial.DefaultMaxDepth,
		},
		Store: StoreConfig{
			Table:       "serial_nodes",
			RedisPrefix: "serial:",
		},
	}
}

// Load loads the configuration from serialkit.yml or serialkit.yaml in
// dir. A .env file in dir is read first; environment variables override
// file values.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	def := Default()

	// Set defaults
	v.SetDefault("naming.property_key_style", def.Naming.PropertyKeyStyle)
	v.SetDefault("naming.serialized_key_style", def.Naming.SerializedKeyStyle)
	v.SetDefault("encoding.date_layout", def.Encoding.DateLayout)
	v.SetDefault("encoding.cycle_policy", def.Encoding.CyclePolicy)
	v.SetDefault("encoding.max_depth", def.Encoding.MaxDepth)
	v.SetDefault("encoding.strict", def.Encoding.Strict)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", def.Store.Table)
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_prefix", def.Store.RedisPrefix)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save writes the configuration as YAML to path
func Save(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path returns the path of the configuration file in dir, preferring an
// existing .yml file
func Path(dir string) string {
	yml := filepath.Join(dir, FileName+".yml")
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	return filepath.Join(dir, FileName+".yaml")
}

// Validate checks every setting that Apply would reject
func (c *Config) Validate() error {
	if _, err := serial.ParseKeyStyle(c.Naming.PropertyKeyStyle); err != nil {
		return fmt.Errorf("naming.property_key_style: %w", err)
	}
	if _, err := serial.ParseKeyStyle(c.Naming.SerializedKeyStyle); err != nil {
		return fmt.Errorf("naming.serialized_key_style: %w", err)
	}
	for i, r := range c.Naming.Redirects {
		if r.Property == "" || r.Key == "" {
			return fmt.Errorf("naming.redirects[%d]: property and key are required", i)
		}
	}
	if _, err := serial.ParseCyclePolicy(c.Encoding.CyclePolicy); err != nil {
		return fmt.Errorf("encoding.cycle_policy: %w", err)
	}
	if c.Encoding.DateLayout == "" {
		return fmt.Errorf("encoding.date_layout must not be empty")
	}
	if c.Encoding.MaxDepth < 1 {
		return fmt.Errorf("encoding.max_depth must be at least 1, got: %d", c.Encoding.MaxDepth)
	}
	return nil
}

// Apply copies the naming and encoding settings onto cfg
func (c *Config) Apply(cfg *serial.Configuration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	propertyStyle, _ := serial.ParseKeyStyle(c.Naming.PropertyKeyStyle)
	serializedStyle, _ := serial.ParseKeyStyle(c.Naming.SerializedKeyStyle)
	policy, _ := serial.ParseCyclePolicy(c.Encoding.CyclePolicy)

	cfg.SetPropertyKeyStyle(propertyStyle)
	cfg.SetSerializedKeyStyle(serializedStyle)
	for _, r := range c.Naming.Redirects {
		if err := cfg.AddRedirect(r.Property, r.Key); err != nil {
			return err
		}
	}
	if err := cfg.SetDateLayout(c.Encoding.DateLayout); err != nil {
		return err
	}
	cfg.SetCyclePolicy(policy)
	return cfg.SetMaxDepth(c.Encoding.MaxDepth)
}

// Codec builds a codec over cfg with the encoding options applied
func (c *Config) Codec(cfg *serial.Configuration, opts ...serial.Option) (*serial.Codec, error) {
	if err := c.Apply(cfg); err != nil {
		return nil, err
	}
	base := []serial.Option{serial.WithConfiguration(cfg), serial.WithStrict(c.Encoding.Strict)}
	return serial.NewCodec(append(base, opts...)...), nil
}
