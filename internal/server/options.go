package server

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

type Options struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	RequestTimeout  time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

func NewOptions() *Options {
	return &Options{
		Addr:            ":3000",
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (o *Options) Validate() []error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("http.addr: is required"))
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request-timeout: must be positive"))
	}
	if o.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown-timeout: must not be negative"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Address to listen on. Use port 0 to pick a free port.")
	fs.DurationVar(&o.RequestTimeout, "http.request-timeout", o.RequestTimeout, "Deadline for control plane requests. Websocket sessions are exempt.")
	fs.DurationVar(&o.ShutdownTimeout, "http.shutdown-timeout", o.ShutdownTimeout, "How long to wait for in-flight requests on shutdown.")
}
