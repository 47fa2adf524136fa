// Automod component for per-tenant statistics counters, bucketed by time period.
//
// Counters record how often the engine took each kind of action (mutes, shadowbans, lockdowns, joins) so administrators can see activity per tenant. They are not used for any enforcement decision.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

var AllPeriods = []string{PeriodTotal, PeriodDay, PeriodHour}

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	// Increments the counter for every period
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

// Reads several counters for the same value in one call. Missing counters are reported as zero.
func GetCounts(ctx context.Context, cs CountStore, names []string, val, period string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	for _, n := range names {
		c, err := cs.GetCount(ctx, n, val, period)
		if err != nil {
			return nil, fmt.Errorf("reading counter %s: %w", n, err)
		}
		out[n] = c
	}
	return out, nil
}

func periodBucket(name, val, period string, now time.Time) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := now.UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := now.UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}
