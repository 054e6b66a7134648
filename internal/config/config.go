// Package config loads hookkit settings from defaults, an optional TOML file
// and HOOKKIT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

const (
	// EnvPrefix prefixes every environment override, e.g. HOOKKIT_LOG_LEVEL.
	EnvPrefix = "HOOKKIT"
	// FileName is looked up in the working directory when no path is given.
	FileName = "hookkit.toml"

	// keyDelim separates viper key segments. Hook and signature names
	// contain dots, so the default "." cannot be used.
	keyDelim = "::"
)

// Config is the full configuration.
type Config struct {
	Target     TargetConfig          `mapstructure:"target" toml:"target" json:"target"`
	Tick       TickConfig            `mapstructure:"tick" toml:"tick" json:"tick"`
	Log        LogConfig             `mapstructure:"log" toml:"log" json:"log"`
	Signatures map[string]string     `mapstructure:"signatures" toml:"signatures" json:"signatures"`
	Hooks      map[string]HookConfig `mapstructure:"hooks" toml:"hooks" json:"hooks"`
}

// TargetConfig selects the memory to work on. PID 0 means the current
// process; a non-empty Dump scans a module image file instead.
type TargetConfig struct {
	Module string `mapstructure:"module" toml:"module,omitempty" json:"module"`
	PID    int    `mapstructure:"pid" toml:"pid" json:"pid"`
	Dump   string `mapstructure:"dump" toml:"dump,omitempty" json:"dump"`
	Base   uint64 `mapstructure:"base" toml:"base" json:"base"` // load address of Dump
}

type TickConfig struct {
	Interval    time.Duration `mapstructure:"interval" toml:"interval" json:"interval"`
	GiveUpAfter int           `mapstructure:"give_up_after" toml:"give_up_after" json:"give_up_after"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level" json:"level"`
	Format string `mapstructure:"format" toml:"format" json:"format"`
	File   string `mapstructure:"file" toml:"file,omitempty" json:"file"`
}

// HookConfig overrides a hook's default enabled state.
type HookConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target: TargetConfig{Base: 0x140000000},
		Tick: TickConfig{
			Interval:    16 * time.Millisecond,
			GiveUpAfter: 600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Signatures: map[string]string{},
		Hooks:      map[string]HookConfig{},
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file; it must exist. Empty means
	// FileName in the working directory, if present.
	Path string
}

// Load resolves the configuration and validates it.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelim))

	d := Default()
	v.SetDefault(key("target", "module"), d.Target.Module)
	v.SetDefault(key("target", "pid"), d.Target.PID)
	v.SetDefault(key("target", "dump"), d.Target.Dump)
	v.SetDefault(key("target", "base"), d.Target.Base)
	v.SetDefault(key("tick", "interval"), d.Tick.Interval)
	v.SetDefault(key("tick", "give_up_after"), d.Tick.GiveUpAfter)
	v.SetDefault(key("log", "level"), d.Log.Level)
	v.SetDefault(key("log", "format"), d.Log.Format)
	v.SetDefault(key("log", "file"), d.Log.File)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))
	v.AutomaticEnv()

	resolved := ""
	switch {
	case opts.Path != "":
		if !fileExists(opts.Path) {
			return nil, "", types.Wrap(types.ErrKindConfig, "config file not found: "+opts.Path, nil)
		}
		resolved = opts.Path
	case fileExists(FileName):
		resolved = FileName
	}
	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", types.Wrap(types.ErrKindConfig, "read "+resolved, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", types.Wrap(types.ErrKindConfig, "parse config", err)
	}
	if cfg.Signatures == nil {
		cfg.Signatures = map[string]string{}
	}
	if cfg.Hooks == nil {
		cfg.Hooks = map[string]HookConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func key(parts ...string) string { return strings.Join(parts, keyDelim) }

// Validate checks values that the decoder cannot. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error
	if c.Tick.Interval <= 0 {
		errs = append(errs, fmt.Errorf("tick.interval must be positive, got %s", c.Tick.Interval))
	}
	if c.Tick.GiveUpAfter < 1 {
		errs = append(errs, fmt.Errorf("tick.give_up_after must be at least 1, got %d", c.Tick.GiveUpAfter))
	}
	if c.Target.PID < 0 {
		errs = append(errs, fmt.Errorf("target.pid must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not debug, info, warn or error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text, json or logfmt", c.Log.Format))
	}
	for name, sig := range c.Signatures {
		if _, err := scan.Parse(sig); err != nil {
			errs = append(errs, fmt.Errorf("signatures.%s: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return types.Wrap(types.ErrKindConfig, "invalid configuration", errors.Join(errs...))
}

// HookDefaults returns the per-hook enabled overrides.
func (c *Config) HookDefaults() map[string]bool {
	out := make(map[string]bool, len(c.Hooks))
	for name, h := range c.Hooks {
		out[name] = h.Enabled
	}
	return out
}

// Marshal renders c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
