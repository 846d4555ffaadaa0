package shotgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
)

const (
	directoryPermission = 0o750
	pollInterval        = 100 * time.Millisecond
)

// Run generates shots, submits them over the configured transport, waits for
// the service queue to drain and reports the outcome. pub is only used by
// the kafka transport.
func Run(ctx context.Context, cfg *Config, pub Publisher) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("shotgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting shot run",
		logger.String("transport", cfg.Transport),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("shots", cfg.NumShots),
		logger.Float64("duplicateRatio", cfg.DuplicateRatio),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)
	checkHealth := cfg.BaseURL != ""
	if checkHealth {
		if err := client.get(ctx, cfg.BaseURL+"/healthz", nil); err != nil {
			return nil, fmt.Errorf("service health check failed: %w", err)
		}
	}

	shots := Generate(cfg, time.Now())
	stats.Generated = len(shots)

	switch cfg.Transport {
	case TransportKafka:
		if pub == nil {
			return nil, fmt.Errorf("%w: kafka transport needs a publisher", ErrInvalidConfig)
		}
		if err := submitKafka(ctx, pub, shots, stats); err != nil {
			return stats, fmt.Errorf("publish shots: %w", err)
		}
	default:
		submitHTTP(ctx, cfg, shots, stats)
	}

	if checkHealth {
		st, drained := waitForDrain(ctx, client, cfg)
		stats.QueueDrain = drained
		stats.Hits = st.Hits
		stats.Sessions = st.Sessions
	}

	if cfg.OutputFile != "" {
		if err := saveShots(cfg.OutputFile, shots); err != nil {
			log.Warn(ctx, "failed to save shots to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// waitForDrain polls /stats until the shot queue is empty or the drain
// timeout passes.
func waitForDrain(ctx context.Context, client *httpClient, cfg *Config) (serviceStats, bool) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var st serviceStats
	for {
		if err := client.get(ctx, cfg.BaseURL+"/stats", &st); err == nil && st.QueueLength == 0 {
			return st, true
		}
		select {
		case <-ctx.Done():
			return st, false
		case <-ticker.C:
		}
	}
}

// saveShots writes the generated shots as a JSON array of wire messages.
func saveShots(filename string, shots []model.Shot) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	msgs := make([]model.ShotMessage, len(shots))
	for i, s := range shots {
		msgs[i] = model.NewShotMessage(s)
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal shots: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("retried", stats.Retried),
		logger.Int("failed", stats.Failed),
		logger.Int("hits", stats.Hits),
		logger.Int("sessions", stats.Sessions),
		logger.Bool("queueDrained", stats.QueueDrain),
		logger.Duration("duration", stats.Duration),
		logger.Float64("shotsPerSecond", perSecond),
	)
}
