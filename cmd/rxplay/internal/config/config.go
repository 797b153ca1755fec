package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up in the project root.
const FileName = "rxplay.yaml"

// Config represents the rxplay.yaml configuration. Every field can be
// overridden from the environment.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Playground PlaygroundConfig `yaml:"playground"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty" env:"RXPLAY_APP_NAME"`
}

// PlaygroundConfig drives the demo widgets and the scripted input that
// stands in for a user.
type PlaygroundConfig struct {
	// Interval is the starting tick period of the interval counter.
	Interval time.Duration `yaml:"interval,omitempty" env:"RXPLAY_INTERVAL"`
	// FastInterval is the period the script switches to and back from.
	FastInterval time.Duration `yaml:"fast_interval,omitempty" env:"RXPLAY_FAST_INTERVAL"`
	// Latency is how long the mock backend takes to answer a click.
	Latency time.Duration `yaml:"latency,omitempty" env:"RXPLAY_LATENCY"`
	// Amount is added to the value by every answered click.
	Amount int `yaml:"amount,omitempty" env:"RXPLAY_AMOUNT"`
	// ClickEvery is the scripted click period. Zero disables clicks.
	ClickEvery time.Duration `yaml:"click_every,omitempty" env:"RXPLAY_CLICK_EVERY"`
	// SwitchEvery is the scripted interval toggle period. Zero disables it.
	SwitchEvery time.Duration `yaml:"switch_every,omitempty" env:"RXPLAY_SWITCH_EVERY"`
	// Duration stops the playground after it elapses. Zero runs until interrupted.
	Duration time.Duration `yaml:"duration,omitempty" env:"RXPLAY_DURATION"`
}

// ServerConfig configures the HTTP endpoint serving /metrics and /debug/.
type ServerConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `yaml:"addr,omitempty" env:"RXPLAY_ADDR"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"RXPLAY_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"RXPLAY_LOG_FORMAT"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	Playground PlaygroundConfig
	Addr       string
	LogLevel   slog.Level
	LogFormat  string
}

// Default returns the values used when neither the file nor the
// environment sets them.
func Default() Config {
	return Config{
		Playground: PlaygroundConfig{
			Interval:     time.Second,
			FastInterval: 200 * time.Millisecond,
			Latency:      time.Second,
			Amount:       100,
			ClickEvery:   1500 * time.Millisecond,
			SwitchEvery:  5 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadOptional reads rxplay.yaml from dir over the defaults, if present.
func LoadOptional(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads rxplay.yaml (if present), applies environment overrides,
// and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	modulePath := modulePath(dir)
	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid log format %q: expected text or json", cfg.Log.Format)
	}
	if err := validatePlayground(cfg.Playground); err != nil {
		return nil, err
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		Playground: cfg.Playground,
		Addr:       strings.TrimSpace(cfg.Server.Addr),
		LogLevel:   level,
		LogFormat:  format,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod.
// Outside a module it returns the current directory.
func FindProjectRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

func validatePlayground(p PlaygroundConfig) error {
	switch {
	case p.Interval <= 0:
		return fmt.Errorf("playground.interval must be positive, got %s", p.Interval)
	case p.FastInterval <= 0:
		return fmt.Errorf("playground.fast_interval must be positive, got %s", p.FastInterval)
	case p.Latency < 0:
		return fmt.Errorf("playground.latency must not be negative, got %s", p.Latency)
	case p.ClickEvery < 0 || p.SwitchEvery < 0 || p.Duration < 0:
		return errors.New("playground periods must not be negative")
	}
	return nil
}

// modulePath returns the module path declared in dir/go.mod, or "" when
// there is none.
func modulePath(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		if modName, _, ok := module.SplitPathVersion(modulePath); ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "rxplay"
	}
	return base
}
