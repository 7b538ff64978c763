// Package config loads nsreg configuration.
//
// Precedence, highest first:
//  1. NSREG_* environment variables
//  2. the YAML file given to Load
//  3. built-in defaults
//
// Environment variables drop the NSREG_ prefix, are lower-cased and split on
// the first underscore into section and field:
//
//	NSREG_REGISTRY_BASE_URI -> registry.base_uri
//	NSREG_SERVER_ADDR       -> server.addr
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/nsreg/internal/registry"
)

// EnvPrefix marks environment variables read by Load.
const EnvPrefix = "NSREG_"

const maxConfigFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the complete nsreg configuration.
type Config struct {
	Registry RegistryConfig `koanf:"registry"`
	Server   ServerConfig   `koanf:"server"`
	Journal  JournalConfig  `koanf:"journal"`
	Log      LogConfig      `koanf:"log"`
}

// RegistryConfig mirrors registry.Config.
type RegistryConfig struct {
	Separator   string `koanf:"separator"`
	BaseURI     string `koanf:"base_uri"`
	Suffix      string `koanf:"suffix"`
	AutoInclude bool   `koanf:"auto_include"`
	Strict      bool   `koanf:"strict"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	UnitsDir        string        `koanf:"units_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// JournalConfig configures the lifecycle journal. An empty path disables it.
type JournalConfig struct {
	Path string `koanf:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// Load reads defaults, then the YAML file at path when path is not empty,
// then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps NSREG_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Registry.Separator == "" {
		return errors.New("registry.separator must not be empty")
	}
	if c.Registry.Separator == "*" {
		return errors.New("registry.separator must not be the wildcard")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// RegistryConfig converts the registry section for registry.WithConfig.
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		Separator:   c.Registry.Separator,
		BaseURI:     c.Registry.BaseURI,
		Suffix:      c.Registry.Suffix,
		AutoInclude: c.Registry.AutoInclude,
		Strict:      c.Registry.Strict,
	}
}
