package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/notestation-importer/internal/config"
	"github.com/mrlokans/notestation-importer/internal/logging"
)

// output is embedded by every command so tests can capture what it prints.
type output struct {
	Stdout io.Writer
}

func (o *output) out() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *output) printf(format string, args ...any) {
	fmt.Fprintf(o.out(), format, args...)
}

func (o *output) println(args ...any) {
	fmt.Fprintln(o.out(), args...)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.Load(path)
}

func newLogging(cfg *config.Config, verbose bool) (*logging.Service, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.NewService(logging.Config{Level: level, Format: cfg.Logging.Format})
}

// setIfNotEmpty overrides a configuration value with a flag that was given.
func setIfNotEmpty(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}
