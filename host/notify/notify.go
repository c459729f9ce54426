// Package notify announces finished recordings on NATS so downstream
// processing can pick them up.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is followed by the device name.
const SubjectPrefix = "magpie.recordings."

// Event describes one file received from a recorder.
type Event struct {
	ID         string    `json:"id"`
	Device     string    `json:"device"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Bytes      uint32    `json:"bytes"`
	SampleRate uint32    `json:"sample_rate"`
	BitDepth   uint8     `json:"bit_depth"`
	Channels   uint16    `json:"channels"`
	Valid      bool      `json:"valid"` // header present and consistent with the size
	SeqGaps    uint32    `json:"seq_gaps"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(e Event) error
	Close()
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// Subject is where events for device are published.
func Subject(device string) string {
	return SubjectPrefix + device
}

// NATSPublisher publishes events as JSON.
type NATSPublisher struct {
	conn    Conn
	subject string
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, device string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: Subject(device)}
}

// Connect dials url, retrying up to attempts times.
func Connect(url, device string, attempts int, wait time.Duration) (*NATSPublisher, error) {
	if attempts < 1 {
		attempts = 1
	}
	var nc *nats.Conn
	var err error
	for i := 0; i < attempts; i++ {
		nc, err = nats.Connect(url, nats.Name("magpie-host "+device))
		if err == nil {
			break
		}
		slog.Warn("NATS connect failed", "url", url, "attempt", i+1, "of", attempts, "error", err)
		if i < attempts-1 {
			time.Sleep(wait)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	slog.Info("connected to NATS", "url", url, "subject", Subject(device))
	return NewNATSPublisher(nc, device), nil
}

func (p *NATSPublisher) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return p.conn.Flush()
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// Nop discards events. It is used when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close()              {}

// New returns a NATS publisher for url, or Nop when url is empty.
func New(url, device string, attempts int, wait time.Duration) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return Connect(url, device, attempts, wait)
}
