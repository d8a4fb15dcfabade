package tcpengine

import "github.com/pkg/errors"

// Default values mirror the host configuration spec.md §6 references.
const (
	DefaultCapacity        = 64000
	DefaultRtTimeoutMillis = 1000
	DefaultMaxRetxAttempts = 8
	DefaultMaxPayloadSize  = 1000
)

// Config holds the recognized construction options for a Connection
// (spec.md §6). The zero value is not valid; use NewConfig to pick up
// the defaults, then override only what differs.
type Config struct {
	// Capacity bounds both the sender's outbound stream and the
	// receiver's inbound stream independently.
	Capacity int

	// RtTimeoutMillis is the initial retransmission timeout, in
	// milliseconds.
	RtTimeoutMillis uint64

	// FixedISN, if non-nil, pins the sender's initial sequence number
	// for deterministic tests. A nil value means a random ISN is
	// drawn at Sender construction.
	FixedISN *WSN

	// MaxRetxAttempts is the number of consecutive retransmissions
	// above which the connection aborts with an RST.
	MaxRetxAttempts int

	// MaxPayloadSize caps the payload bytes placed in a single
	// outbound segment.
	MaxPayloadSize int
}

// NewConfig returns a Config populated with the library's defaults.
func NewConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		RtTimeoutMillis: DefaultRtTimeoutMillis,
		MaxRetxAttempts: DefaultMaxRetxAttempts,
		MaxPayloadSize:  DefaultMaxPayloadSize,
	}
}

// Validate rejects configurations the engine cannot operate under.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Errorf("tcpengine: capacity must be positive, got %d", c.Capacity)
	}
	if c.RtTimeoutMillis == 0 {
		return errors.New("tcpengine: rt timeout must be positive")
	}
	if c.MaxPayloadSize <= 0 {
		return errors.Errorf("tcpengine: max payload size must be positive, got %d", c.MaxPayloadSize)
	}
	if c.MaxRetxAttempts < 0 {
		return errors.Errorf("tcpengine: max retx attempts must be non-negative, got %d", c.MaxRetxAttempts)
	}
	return nil
}
