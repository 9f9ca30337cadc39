// Package config loads and validates the cache engine's configuration
// from an operator-edited YAML file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/shrinkcache/shrinkcache/core"
	"gopkg.in/yaml.v3"
)

// Config is the top-level, immutable-after-load configuration.
type Config struct {
	// Formats offered to content negotiation, in configured order.
	Formats []core.Format `yaml:"extensions"`
	// DefaultFormat is served when negotiation is inconclusive.
	DefaultFormat core.Format `yaml:"default_format"`

	// Roots are the source directories indexed and watched.
	Roots []string `yaml:"roots"`
	// URL is the proxy-side URL template; the engine itself never parses
	// it, the host's routing layer does.
	URL string `yaml:"url"`

	// CacheDirectory is where persisted variants are written.
	CacheDirectory string `yaml:"cache_directory"`

	// OptimizerThreads sizes the Optimizer Pool; default 1.
	OptimizerThreads int `yaml:"pre_optimizer_threads"`

	// Sizes maps a profile name to its SizeProfile.
	Sizes map[string]*SizeProfile `yaml:"sizes"`

	// Qualities holds per-format global default quality, second in the
	// fallback chain after a size profile's own quality.
	Qualities map[core.Format]int `yaml:"qualities"`

	// Codec selects the Codec backend: "vips" (default) or "stdlib".
	Codec string `yaml:"codec"`

	// Logger configures the structured logger.
	Logger *LoggerConfig `yaml:"logger"`
}

// LoggerConfig configures the engine's slog-backed logger.
type LoggerConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// SizeProfile is a named (width, height, per-format quality, optional
// match pattern, pre_optimize) tuple, read-only after config load.
type SizeProfile struct {
	Width        int                 `yaml:"width"`
	Height       int                 `yaml:"height"`
	MatchPattern string              `yaml:"pattern"`
	PreOptimize  bool                `yaml:"pre_optimize"`
	Qualities    map[core.Format]int `yaml:"qualities"`

	compiledPattern *regexp.Regexp
}

// Matches reports whether imageID is eligible for this profile. An empty
// MatchPattern means "all image ids".
func (s *SizeProfile) Matches(imageID string) bool {
	if s.compiledPattern == nil {
		if s.MatchPattern == "" {
			return true
		}
		ok, err := regexp.MatchString(s.MatchPattern, imageID)
		return err == nil && ok
	}
	return s.compiledPattern.MatchString(imageID)
}

// Quality resolves the three-level fallback chain: profile quality ->
// config-global per-format default -> format built-in default.
func (s *SizeProfile) Quality(format core.Format, cfg *Config) int {
	if q, ok := s.Qualities[format]; ok && q > 0 {
		return q
	}
	if q, ok := cfg.Qualities[format]; ok && q > 0 {
		return q
	}
	return format.DefaultQuality()
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Formats:          []core.Format{core.FormatWebP, core.FormatJPEG},
		DefaultFormat:    core.FormatJPEG,
		Roots:            nil,
		URL:              "/media/{size}/{path}",
		CacheDirectory:   "/tmp/cache-engine",
		OptimizerThreads: 1,
		Sizes:            map[string]*SizeProfile{},
		Qualities:        map[core.Format]int{},
		Codec:            "vips",
		Logger:           &LoggerConfig{Level: "info"},
	}
}

// Load reads and parses a YAML config file, compiling size profile match
// patterns and validating the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, core.WrapErr(core.CategoryIO, "config.load", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, core.WrapErr(core.CategoryBadInput, "config.load.parse", err)
	}
	if cfg.OptimizerThreads <= 0 {
		cfg.OptimizerThreads = 1
	}

	if err := compilePatterns(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func compilePatterns(cfg *Config) error {
	for name, sz := range cfg.Sizes {
		if sz.MatchPattern == "" {
			continue
		}
		re, err := regexp.Compile(sz.MatchPattern)
		if err != nil {
			return core.WrapErr(core.CategoryBadInput, "config.pattern."+name, err)
		}
		sz.compiledPattern = re
	}
	return nil
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("%w: config: at least one format must be offered", core.ErrConfigInvalid)
	}
	if c.CacheDirectory == "" {
		return fmt.Errorf("%w: config: cache_directory must be set", core.ErrConfigInvalid)
	}
	if len(c.Roots) == 0 {
		return fmt.Errorf("%w: config: at least one source root must be configured", core.ErrConfigInvalid)
	}
	for name, sz := range c.Sizes {
		if sz.Width <= 0 && sz.Height <= 0 {
			return fmt.Errorf("%w: config: size profile %q must set width or height", core.ErrConfigInvalid, name)
		}
	}
	return nil
}

// ProfileFor returns the named size profile, or nil if unconfigured.
func (c *Config) ProfileFor(name string) *SizeProfile {
	return c.Sizes[name]
}

// OffersFormat reports whether f is among the configured negotiation
// formats.
func (c *Config) OffersFormat(f core.Format) bool {
	for _, cand := range c.Formats {
		if cand == f {
			return true
		}
	}
	return false
}

// IdleWorkerTimeout is how long an optimizer worker goroutine sits idle
// before exiting to release codec memory.
const IdleWorkerTimeout = 60 * time.Second
