package engine

import (
	"context"

	"github.com/phantomguard/warden/automod/flagstore"
)

func (eng *Engine) persistCounters(ctx context.Context, eff *Effects) error {
	for _, ref := range eff.CounterIncrements {
		err := eng.Counters.Increment(ctx, ref.Name, ref.Val)
		if err != nil {
			return err
		}
	}
	for _, ref := range eff.CounterDistinctIncrements {
		err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val)
		if err != nil {
			return err
		}
	}
	return nil
}

// Persists side-effects of message processing: counters, member flags, and notifications.
//
// Runs after escalation commands have been issued; a failure here doesn't affect enforcement.
func (eng *Engine) persistMessageEffects(c *MessageContext, v Verdict) error {
	ctx := c.Ctx
	newFlags := dedupeStrings(c.effects.Flags)
	if len(newFlags) > 0 {
		key := flagstore.MemberKey(c.Message.Tenant, c.Message.User)
		if err := eng.Flags.Add(ctx, key, newFlags); err != nil {
			return err
		}
		for _, f := range newFlags {
			actionNewFlagCount.WithLabelValues(f).Inc()
		}
	}

	if eng.Notifier != nil {
		for _, srv := range dedupeStrings(c.effects.NotifyServices) {
			if err := eng.Notifier.SendEscalation(ctx, srv, c, v); err != nil {
				c.Logger.Error("failed to deliver notification", "service", srv, "err", err)
			}
		}
	}

	return eng.persistCounters(ctx, c.effects)
}

func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
