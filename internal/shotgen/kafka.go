package shotgen

import (
	"context"

	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
)

const kafkaBatch = 100

// Publisher writes shots to the shot topic.
type Publisher interface {
	Publish(ctx context.Context, shots ...model.Shot) error
}

// submitKafka publishes shots in batches. Dedupe happens in the service, so
// every published shot counts as submitted.
func submitKafka(ctx context.Context, pub Publisher, shots []model.Shot, stats *Stats) error {
	log := logger.Get().Named("shotgen")
	for start := 0; start < len(shots); start += kafkaBatch {
		end := min(start+kafkaBatch, len(shots))
		if err := pub.Publish(ctx, shots[start:end]...); err != nil {
			stats.Failed += len(shots) - start
			return err
		}
		stats.Submitted += end - start
		log.Debug(ctx, "published batch", logger.Int("from", start), logger.Int("to", end))
	}
	return nil
}
