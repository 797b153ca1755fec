package cmd

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/rxdrift/cmd/rxplay/internal/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration rxplay would run with, after merging defaults,
rxplay.yaml, and environment overrides.

Environment overrides:
  RXPLAY_APP_NAME  RXPLAY_INTERVAL  RXPLAY_FAST_INTERVAL  RXPLAY_LATENCY
  RXPLAY_AMOUNT  RXPLAY_CLICK_EVERY  RXPLAY_SWITCH_EVERY  RXPLAY_DURATION
  RXPLAY_ADDR  RXPLAY_LOG_LEVEL  RXPLAY_LOG_FORMAT`,
		Usage: "rxplay config [--dir DIR]",
		Run:   runConfig,
	})
}

func runConfig(args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(opts.dir)
	if err != nil {
		return err
	}

	out := config.Config{
		App:        config.AppConfig{Name: cfg.AppName},
		Playground: cfg.Playground,
		Server:     config.ServerConfig{Addr: cfg.Addr},
		Log: config.LogConfig{
			Level:  strings.ToLower(cfg.LogLevel.String()),
			Format: cfg.LogFormat,
		},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintf(stdout, "# module: %s\n", cfg.ModulePath)
	_, err = stdout.Write(data)
	return err
}
