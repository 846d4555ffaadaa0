package exercise

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/shootsim/internal/domain/region"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

// PointsTag is the region tag holding a hit's score value.
const PointsTag = "points"

// points reads the points tag of r. ok is false when the tag is absent.
func points(r *region.Region) (pts int, ok bool, err error) {
	if r == nil || !r.TagExists(PointsTag) {
		return 0, false, nil
	}
	raw, err := r.Tag(PointsTag)
	if err != nil {
		return 0, false, err
	}
	pts, err = strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, true, fmt.Errorf("%w: %q", ErrInvalidPoints, raw)
	}
	return pts, true, nil
}

func reportInvalidPoints(ctx context.Context, log logger.Logger, err error) {
	metrics.RecordPointsParseError()
	log.Warn(ctx, "skipping score increment", logger.Error(err))
}
