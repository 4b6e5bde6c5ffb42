package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"
)

type NATSOptions struct {
	URL           string `json:"url" mapstructure:"url"`
	SubjectPrefix string `json:"subject-prefix" mapstructure:"subject-prefix"`
}

func NewNATSOptions() *NATSOptions {
	return &NATSOptions{SubjectPrefix: "fleet"}
}

func (o *NATSOptions) Validate() []error {
	var errs []error
	if o.URL != "" && !validSubjectToken(o.SubjectPrefix) {
		errs = append(errs, fmt.Errorf("nats.subject-prefix: must be a non-empty subject without wildcards (got %q)", o.SubjectPrefix))
	}
	return errs
}

func (o *NATSOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.URL, "nats.url", o.URL, "NATS server URL fleet events are published to. Empty disables publishing.")
	fs.StringVar(&o.SubjectPrefix, "nats.subject-prefix", o.SubjectPrefix, "Prefix of the subjects fleet events are published on.")
}

func validSubjectToken(prefix string) bool {
	if prefix == "" || strings.ContainsAny(prefix, " \t*>") {
		return false
	}
	for _, token := range strings.Split(prefix, ".") {
		if token == "" {
			return false
		}
	}
	return true
}

// NATSConn is the part of *nats.Conn the publisher uses.
type NATSConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes updates on <prefix>.update.<vehicleId> and
// offline notices on <prefix>.offline.<vehicleId>.
type NATSPublisher struct {
	conn   NATSConn
	prefix string
}

func ConnectNATS(opts *NATSOptions) (*NATSPublisher, error) {
	conn, err := nats.Connect(opts.URL,
		nats.Name("fleet-live"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSPublisher(conn, opts.SubjectPrefix), nil
}

func NewNATSPublisher(conn NATSConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Subject(kind Kind, vehicleID string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, kind, subjectToken(vehicleID))
}

func (p *NATSPublisher) Handle(ctx context.Context, event Event) error {
	var payload any
	switch event.Kind {
	case KindUpdate:
		payload = event.Record
	case KindOffline:
		payload = struct {
			VehicleID string `json:"vehicleId"`
		}{event.VehicleID}
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Kind, err)
	}
	if err := p.conn.Publish(p.Subject(event.Kind, event.VehicleID), data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Kind, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

// subjectToken makes a vehicle id safe to use as one subject token.
func subjectToken(vehicleID string) string {
	return subjectReplacer.Replace(vehicleID)
}
