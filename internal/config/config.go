// Package config loads grallocctl settings from a file, the environment
// and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/gogpu/gralloc"
)

// Config represents the grallocctl configuration.
type Config struct {
	Backend string        `mapstructure:"backend"`
	Device  string        `mapstructure:"device"`
	Pipe    PipeConfig    `mapstructure:"pipe"`
	Dumb    DumbConfig    `mapstructure:"dumb"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type PipeConfig struct {
	Module    string `mapstructure:"module"`
	ModuleDir string `mapstructure:"module_dir"`
	Export    string `mapstructure:"export"`
}

type DumbConfig struct {
	Helper bool `mapstructure:"helper"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: gralloc.BackendDumb,
		Device:  "/dev/dri/card0",
		Pipe: PipeConfig{
			Module: "gallium",
			Export: "name",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from cfgFile (or grallocctl.yaml in the
// working directory and /etc/gralloc), GRALLOC_* environment variables
// and defaults, in increasing order of precedence for the first two.
// A missing default config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith is like Load but uses v, so that callers can bind command
// line flags before loading.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gralloc")
		v.SetConfigType("yaml")
		v.SetConfigName("grallocctl")
	}

	v.SetEnvPrefix("GRALLOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	backends := []string{gralloc.BackendDumb, gralloc.BackendPipe}
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("backend must be one of: %v", backends)
	}
	if c.Device == "" {
		return errors.New("device must be set")
	}
	if _, err := ParseExport(c.Pipe.Export); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into driver options.
func (c *Config) Options() []gralloc.Option {
	export, _ := ParseExport(c.Pipe.Export)
	return []gralloc.Option{
		gralloc.WithModule(c.Pipe.Module),
		gralloc.WithModuleDir(c.Pipe.ModuleDir),
		gralloc.WithExportKind(export),
		gralloc.WithHelper(c.Dumb.Helper),
	}
}

// ParseExport maps a pipe.export value to a token kind.
func ParseExport(s string) (gralloc.TokenKind, error) {
	switch strings.ToLower(s) {
	case "", "name":
		return gralloc.TokenName, nil
	case "fd":
		return gralloc.TokenFD, nil
	}
	return gralloc.TokenNone, fmt.Errorf("pipe.export must be one of: [name fd], got %q", s)
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level must be one of: [debug info warn error], got %q", s)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("device", cfg.Device)

	v.SetDefault("pipe.module", cfg.Pipe.Module)
	v.SetDefault("pipe.module_dir", cfg.Pipe.ModuleDir)
	v.SetDefault("pipe.export", cfg.Pipe.Export)

	v.SetDefault("dumb.helper", cfg.Dumb.Helper)

	v.SetDefault("logging.level", cfg.Logging.Level)
}
