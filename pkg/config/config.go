// Package config loads the routing engine configuration from YAML.
//
// Example:
//
//	defaults:
//	  iso-dep: "0x82"
//	  felica: unrouted
//	overrides:
//	  mifare: "0x81"
//	system_code: 0xFEFE
//	default_power: 0x11
//	offhost_power: 0x3B
//	debounce: 50ms
//	uicc_ids: [0x81, 0x83, 0x85]
//	ese_ids: [0x82, 0x84, 0x86]
//	trace: /var/log/nfc/routing.rtlog
//	trace_max_size: 1048576
//
// Category keys accept the aliases understood by route.ParseCategories.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/aidtable"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/commit"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/preference"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the on-disk configuration.
type Config struct {
	// Defaults replaces compiled-in default destinations per category.
	Defaults map[string]string `yaml:"defaults"`

	// Overrides are applied when the coordinator starts.
	Overrides map[string]string `yaml:"overrides"`

	SystemCode   uint16 `yaml:"system_code"`
	DefaultPower uint8  `yaml:"default_power"`
	OffHostPower uint8  `yaml:"offhost_power"`

	Debounce       time.Duration `yaml:"debounce"`
	ModeSetTimeout time.Duration `yaml:"mode_set_timeout"`

	UICCIDs []uint8 `yaml:"uicc_ids"`
	ESEIDs  []uint8 `yaml:"ese_ids"`

	// Trace is the path of the routing trace file. Empty disables it.
	Trace string `yaml:"trace"`

	// TraceMaxSize rotates the trace file past this many bytes. Zero
	// disables rotation.
	TraceMaxSize int64 `yaml:"trace_max_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SystemCode:       commit.DefaultSystemCode,
		DefaultPower:     uint8(aidtable.DefaultHostPower),
		OffHostPower:     uint8(aidtable.DefaultOffHostPower),
		Debounce:         commit.DefaultDebounceDelay,
		ModeSetTimeout:   500 * time.Millisecond,
		UICCIDs:          toBytes(route.DefaultUICCIDs),
		ESEIDs:           toBytes(route.DefaultESEIDs),
		LogLevel:         "info",
		MetricsNamespace: "nfc",
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse overlays data onto Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs error

	if _, err := c.RouteDefaults(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.InitialOverrides(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.SystemCode == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: system_code must be non-zero", ErrInvalid))
	}
	if c.Debounce < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: debounce must not be negative", ErrInvalid))
	}
	if c.ModeSetTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: mode_set_timeout must be positive", ErrInvalid))
	}

	if c.TraceMaxSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: trace_max_size must not be negative", ErrInvalid))
	}

	seen := make(map[uint8]string)
	for _, group := range []struct {
		name string
		ids  []uint8
	}{{"uicc_ids", c.UICCIDs}, {"ese_ids", c.ESEIDs}} {
		for _, id := range group.ids {
			if !route.Destination(id).IsOffHost() {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s: 0x%02X is not an execution environment id", ErrInvalid, group.name, id))
				continue
			}
			if prev, ok := seen[id]; ok {
				errs = multierr.Append(errs, fmt.Errorf("%w: 0x%02X listed in %s and %s", ErrInvalid, id, prev, group.name))
			}
			seen[id] = group.name
		}
	}

	if _, err := c.Level(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// RouteDefaults returns the compiled-in defaults with the configured
// replacements applied.
func (c *Config) RouteDefaults() (preference.Defaults, error) {
	d := preference.DefaultRoutes()
	var errs error
	for key, value := range c.Defaults {
		cats, dest, err := parseEntry(key, value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("defaults: %w", err))
			continue
		}
		for _, cat := range cats {
			d[cat] = dest
		}
	}
	if errs != nil {
		return nil, errs
	}
	return d, nil
}

// InitialOverrides returns the configured overrides.
func (c *Config) InitialOverrides() (map[route.Category]route.Override, error) {
	out := make(map[route.Category]route.Override)
	var errs error
	for key, value := range c.Overrides {
		cats, dest, err := parseEntry(key, value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("overrides: %w", err))
			continue
		}
		for _, cat := range cats {
			out[cat] = route.To(dest)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func parseEntry(key, value string) ([]route.Category, route.Destination, error) {
	cats, err := route.ParseCategories(key)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	dest, err := route.ParseDestination(value)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
	}
	return cats, dest, nil
}

// Classifier returns the UICC/eSE classifier.
func (c *Config) Classifier() *route.Classifier {
	return route.NewClassifier(toDestinations(c.UICCIDs), toDestinations(c.ESEIDs))
}

// PowerPolicy returns the AID power policy.
func (c *Config) PowerPolicy() aidtable.PowerPolicy {
	return aidtable.PowerPolicy{
		HostPower:    route.PowerState(c.DefaultPower),
		OffHostPower: route.PowerState(c.OffHostPower),
	}
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
}

// CoordinatorConfig maps the configuration onto a coordinator
// configuration. The caller supplies the controller collaborators and loggers.
func (c *Config) CoordinatorConfig() (commit.Config, error) {
	defaults, err := c.RouteDefaults()
	if err != nil {
		return commit.Config{}, err
	}
	overrides, err := c.InitialOverrides()
	if err != nil {
		return commit.Config{}, err
	}
	return commit.Config{
		Defaults:      defaults,
		Overrides:     overrides,
		Classifier:    c.Classifier(),
		PowerPolicy:   c.PowerPolicy(),
		SystemCode:    c.SystemCode,
		DebounceDelay: c.Debounce,
	}, nil
}

func toBytes(ids []route.Destination) []uint8 {
	out := make([]uint8, len(ids))
	for i, id := range ids {
		out[i] = uint8(id)
	}
	return out
}

func toDestinations(ids []uint8) []route.Destination {
	out := make([]route.Destination, len(ids))
	for i, id := range ids {
		out[i] = route.Destination(id)
	}
	return out
}
