package engine

import (
	"context"
	"fmt"
	"time"
)

// Evaluates the join window of every tracked tenant, locking down any tenant with a burst of joins. Always prunes joins outside the window.
func (eng *Engine) SweepJoins(ctx context.Context, now time.Time) Report {
	ctx, span := tracer.Start(ctx, "SweepJoins")
	defer span.End()

	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("raid").Observe(time.Since(start).Seconds())
	}()

	var rep Report
	var triggered []*TenantState
	var joins [][]Join
	eng.Tenants.Range(func(t *TenantState) bool {
		recent, claimed := t.sweep(now, eng.Config.JoinWindow, eng.Config.JoinThreshold)
		if claimed {
			triggered = append(triggered, t)
			joins = append(joins, recent)
		}
		return true
	})
	for i, t := range triggered {
		eng.Logger.Warn("join burst detected", "tenant", t.Tenant, "joins", len(joins[i]), "window", eng.Config.JoinWindow)
		rep.Merge(eng.lockdown(ctx, t, joins[i]))
	}
	return rep
}

// Runs SweepJoins every RaidSweepInterval until the context is cancelled. An in-flight sweep always completes.
func (eng *Engine) RunRaidSweeps(ctx context.Context) error {
	if eng.Config.RaidSweepInterval <= 0 {
		return fmt.Errorf("raid sweep interval must be positive: %s", eng.Config.RaidSweepInterval)
	}
	ticker := time.NewTicker(eng.Config.RaidSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			eng.SweepJoins(context.WithoutCancel(ctx), eng.now())
		}
	}
}
