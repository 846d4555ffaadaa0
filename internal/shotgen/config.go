// Package shotgen drives a running shootsim with synthetic shots over HTTP
// or Kafka and reports how the service took them.
package shotgen

import (
	"errors"
	"time"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
)

// ErrInvalidConfig is returned for unusable run settings.
var ErrInvalidConfig = errors.New("invalid shotgen config")

// Config holds configuration for a run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Transport      string        // http or kafka
	KafkaBrokers   []string      // Brokers for the kafka transport
	KafkaTopic     string        // Shot topic for the kafka transport
	NumShots       int           // Number of distinct shots to generate
	DuplicateRatio float64       // Share of extra resends of already generated ids
	GreenRatio     float64       // Share of shots fired with the green laser
	Width, Height  float64       // Arena size shots are spread over
	Seed           uint64        // Generator seed; 0 picks one from the clock
	Workers        int           // Concurrent HTTP submitters
	Timeout        time.Duration // HTTP request timeout
	DrainTimeout   time.Duration // How long to wait for the queue to empty
	OutputFile     string        // Optional JSON dump of generated shots
	Verbose        bool          // Log every rejected shot
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.NumShots < 1:
		return errors.Join(ErrInvalidConfig, errors.New("shots must be positive"))
	case c.Width <= 0 || c.Height <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("arena size must be positive"))
	case c.DuplicateRatio < 0 || c.GreenRatio < 0 || c.GreenRatio > 1:
		return errors.Join(ErrInvalidConfig, errors.New("ratios out of range"))
	case c.Transport == TransportKafka && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == ""):
		return errors.Join(ErrInvalidConfig, errors.New("kafka transport needs brokers and topic"))
	case c.Transport != TransportHTTP && c.Transport != TransportKafka:
		return errors.Join(ErrInvalidConfig, errors.New("unknown transport "+c.Transport))
	case c.Transport == TransportHTTP && c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicate  int
	Retried    int
	Failed     int
	Hits       int
	Sessions   int
	QueueDrain bool
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// ack mirrors the POST /shots response.
type ack struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// serviceStats is the part of GET /stats a run reads.
type serviceStats struct {
	Started     bool `json:"started"`
	Hits        int  `json:"hits"`
	QueueLength int  `json:"queue_length"`
	Sessions    int  `json:"sessions"`
}
