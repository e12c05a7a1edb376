// Package bus publishes gate audit events over NATS. Publishing is best
// effort: a down bus never blocks or fails a request decision.
package bus

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fanforge/accessgate/core/infra/logging"
)

const (
	// SubjectDecision carries one event per non-allow gate decision.
	SubjectDecision = "auth.decision"
	// SubjectAnomaly carries resolver anomalies such as unknown role strings.
	SubjectAnomaly = "auth.anomaly"
)

var errNilBus = errors.New("audit bus not initialized")

// Publisher is the subset of the bus the gateway depends on.
type Publisher interface {
	Publish(subject string, event any) error
}

// Noop discards all events. Used when no NATS URL is configured.
type Noop struct{}

func (Noop) Publish(string, any) error { return nil }

// DecisionEvent describes a single gate decision.
type DecisionEvent struct {
	DecisionID string    `json:"decision_id"`
	Time       time.Time `json:"time"`
	Platform   string    `json:"platform"`
	Path       string    `json:"path"`
	Prefix     string    `json:"prefix"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Role       string    `json:"role,omitempty"`
	SourceIP   string    `json:"source_ip,omitempty"`
}

// AnomalyEvent describes a fail-closed irregularity seen during resolution.
type AnomalyEvent struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"`
	Detail   string    `json:"detail,omitempty"`
	Platform string    `json:"platform,omitempty"`
}

// NatsBus is a thin wrapper over a NATS connection that speaks JSON events.
type NatsBus struct {
	nc *nats.Conn
}

// NewNatsBus dials NATS at the provided URL.
func NewNatsBus(url string) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name("accessgate-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Error("audit-bus", "disconnected from nats", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("audit-bus", "reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Info("audit-bus", "connection closed")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NatsBus{nc: nc}, nil
}

// Publish marshals the event as JSON and publishes it on the subject.
func (b *NatsBus) Publish(subject string, event any) error {
	if b == nil || b.nc == nil {
		return errNilBus
	}
	if subject == "" {
		return errors.New("empty subject")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.nc.Publish(subject, data)
}

// Close shuts down the underlying NATS connection.
func (b *NatsBus) Close() {
	if b != nil && b.nc != nil {
		b.nc.Close()
	}
}

// IsConnected reports whether the connection is currently established.
func (b *NatsBus) IsConnected() bool {
	return b != nil && b.nc != nil && b.nc.IsConnected()
}
