package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Options configures the logger.
type Options struct {
	Name          string   `json:"name,omitempty" mapstructure:"name"`
	Level         string   `json:"level,omitempty" mapstructure:"level"`
	Format        string   `json:"format,omitempty" mapstructure:"format"`
	EnableColor   bool     `json:"enable-color,omitempty" mapstructure:"enable-color"`
	DisableCaller bool     `json:"disable-caller,omitempty" mapstructure:"disable-caller"`
	CallerSkip    int      `json:"caller-skip,omitempty" mapstructure:"caller-skip"`
	OutputPaths   []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		EnableColor: false,
		CallerSkip:  1,
		OutputPaths: []string{"stdout"},
	}
}

func (o *Options) Validate() []error {
	var errs []error
	if o.Format != "console" && o.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be one of console, json (got %q)", o.Format))
	}
	switch o.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: must be one of debug, info, warn, error (got %q)", o.Level))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "An optional name for the logger.")
	fs.StringVar(&o.Level, "log.level", o.Level, "The minimum log level to output (debug, info, warn, error).")
	fs.StringVar(&o.Format, "log.format", o.Format, "The log output format ('json' or 'console').")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Enable colorized output for the console format.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Disable the caller field in logs.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "A list of log output paths (e.g. 'stdout', '/var/log/fleet-live.log').")
}
