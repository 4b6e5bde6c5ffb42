package auth

import (
	"errors"

	"github.com/spf13/pflag"
)

type Options struct {
	PublicKey string `json:"public-key" mapstructure:"public-key"`
	Issuer    string `json:"issuer" mapstructure:"issuer"`
}

func NewOptions() *Options {
	return &Options{}
}

func (o *Options) Validate() []error {
	var errs []error
	if o.PublicKey == "" {
		errs = append(errs, errors.New("auth.public-key: is required"))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.PublicKey, "auth.public-key", o.PublicKey, "URL to the public key used to sign auth tokens. Currently only file:// URLs are supported.")
	fs.StringVar(&o.Issuer, "auth.issuer", o.Issuer, "Required token issuer. Empty accepts any issuer.")
}
