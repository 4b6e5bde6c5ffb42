package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type Options struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"password" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl"`
	Restore  bool          `json:"restore" mapstructure:"restore"`
	Key      string        `json:"key" mapstructure:"key"`
}

func NewOptions() *Options {
	return &Options{
		TTL: time.Hour,
		Key: "fleet:live",
	}
}

func (o *Options) Enabled() bool {
	return o.Addr != ""
}

func (o *Options) Validate() []error {
	var errs []error
	if !o.Enabled() {
		return errs
	}
	if o.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db: must not be negative (got %d)", o.DB))
	}
	if o.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.ttl: must not be negative (got %s)", o.TTL))
	}
	if o.Key == "" {
		errs = append(errs, fmt.Errorf("redis.key: is required"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Address (host:port) of the redis server mirroring the live fleet. Empty disables the mirror.")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Password for the redis server.")
	fs.IntVar(&o.DB, "redis.db", o.DB, "Redis database number.")
	fs.DurationVar(&o.TTL, "redis.ttl", o.TTL, "Expire the mirror when it has not been written for this long. 0 keeps it forever.")
	fs.BoolVar(&o.Restore, "redis.restore", o.Restore, "Load the mirrored fleet into the registry on startup.")
	fs.StringVar(&o.Key, "redis.key", o.Key, "Redis hash holding the mirrored fleet.")
}
