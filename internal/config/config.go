// Package config assembles the server's option groups and loads them from
// flags, environment variables, a config file and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/technopolitica/fleet-live/internal/auth"
	"github.com/technopolitica/fleet-live/internal/cache"
	"github.com/technopolitica/fleet-live/internal/db"
	"github.com/technopolitica/fleet-live/internal/events"
	"github.com/technopolitica/fleet-live/internal/gateway"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/server"
)

const EnvPrefix = "FLEET_LIVE"

type ServerOptions struct {
	ConfigFile string              `json:"-" mapstructure:"-"`
	HTTP       *server.Options     `json:"http" mapstructure:"http"`
	DB         *db.Options         `json:"db" mapstructure:"db"`
	Auth       *auth.Options       `json:"auth" mapstructure:"auth"`
	Gateway    *gateway.Options    `json:"gateway" mapstructure:"gateway"`
	Redis      *cache.Options      `json:"redis" mapstructure:"redis"`
	NATS       *events.NATSOptions `json:"nats" mapstructure:"nats"`
	Log        *log.Options        `json:"log" mapstructure:"log"`
}

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTP:    server.NewOptions(),
		DB:      db.NewOptions(),
		Auth:    auth.NewOptions(),
		Gateway: gateway.NewOptions(),
		Redis:   cache.NewOptions(),
		NATS:    events.NewNATSOptions(),
		Log:     log.NewOptions(),
	}
}

func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Path to a YAML, JSON or TOML config file. Keys mirror the flag names, e.g. http.addr.")
	o.HTTP.AddFlags(fs)
	o.DB.AddFlags(fs)
	o.Auth.AddFlags(fs)
	o.Gateway.AddFlags(fs)
	o.Redis.AddFlags(fs)
	o.NATS.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *ServerOptions) Validate() error {
	var errs []error
	errs = append(errs, o.HTTP.Validate()...)
	errs = append(errs, o.DB.Validate()...)
	errs = append(errs, o.Auth.Validate()...)
	errs = append(errs, o.Gateway.Validate()...)
	errs = append(errs, o.Redis.Validate()...)
	errs = append(errs, o.NATS.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Load fills every flag the command line left unset, from the first of:
// FLEET_LIVE_* environment variables (after loading envFiles, ".env" by
// default, without overriding the real environment), then configFile.
func Load(fs *pflag.FlagSet, configFile string, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var errs []error
	fs.VisitAll(func(flag *pflag.Flag) {
		if flag.Changed || flag.Name == "config" || !v.IsSet(flag.Name) {
			return
		}
		value := v.GetString(flag.Name)
		if strings.HasSuffix(flag.Value.Type(), "Slice") {
			value = strings.Join(v.GetStringSlice(flag.Name), ",")
		}
		if err := fs.Set(flag.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", flag.Name, err))
		}
	})
	return errors.Join(errs...)
}

// EnvName is the environment variable that sets the flag called name.
func EnvName(name string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}
