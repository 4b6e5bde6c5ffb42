package gateway

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type Options struct {
	SendQueue      int           `json:"send-queue" mapstructure:"send-queue"`
	WriteTimeout   time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	PongTimeout    time.Duration `json:"pong-timeout" mapstructure:"pong-timeout"`
	StaleAfter     time.Duration `json:"stale-after" mapstructure:"stale-after"`
	AllowedOrigins []string      `json:"allowed-origins" mapstructure:"allowed-origins"`
	MaxMessageSize int64         `json:"max-message-size" mapstructure:"max-message-size"`
}

func NewOptions() *Options {
	return &Options{
		SendQueue:      64,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

func (o *Options) Validate() []error {
	var errs []error
	if o.SendQueue <= 0 {
		errs = append(errs, fmt.Errorf("gateway.send-queue: must be positive (got %d)", o.SendQueue))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.write-timeout: must be positive (got %s)", o.WriteTimeout))
	}
	if o.PongTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.pong-timeout: must be positive (got %s)", o.PongTimeout))
	}
	if o.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("gateway.stale-after: must not be negative (got %s)", o.StaleAfter))
	}
	if o.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("gateway.max-message-size: must be positive (got %d)", o.MaxMessageSize))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.SendQueue, "gateway.send-queue", o.SendQueue, "Outbound messages buffered per session before the oldest is dropped.")
	fs.DurationVar(&o.WriteTimeout, "gateway.write-timeout", o.WriteTimeout, "Deadline for writing one frame to a session.")
	fs.DurationVar(&o.PongTimeout, "gateway.pong-timeout", o.PongTimeout, "Close a session that has not answered a ping within this period.")
	fs.DurationVar(&o.StaleAfter, "gateway.stale-after", o.StaleAfter, "Take vehicles offline after this long without a report. 0 keeps them until their trip ends.")
	fs.StringSliceVar(&o.AllowedOrigins, "gateway.allowed-origins", o.AllowedOrigins, "Origins allowed to open realtime sessions. Empty allows any origin.")
	fs.Int64Var(&o.MaxMessageSize, "gateway.max-message-size", o.MaxMessageSize, "Largest inbound frame accepted, in bytes.")
}

func (o *Options) pingPeriod() time.Duration {
	return o.PongTimeout * 9 / 10
}

// reapInterval is how often the stale reaper scans the registry.
func (o *Options) reapInterval() time.Duration {
	interval := o.StaleAfter / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
