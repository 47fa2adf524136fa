package engine

import (
	"context"
	"fmt"

	"github.com/phantomguard/warden/automod/flagstore"
	"github.com/phantomguard/warden/automod/platform"
)

type UnlockResult struct {
	// false if there was no active lockdown (or another unlock was already in progress)
	WasLocked bool
	Report    Report
}

// Manually locks down a tenant. Returns false (and issues no commands) if the tenant was already locked.
//
// Runs to completion even if ctx is cancelled.
func (eng *Engine) Lockdown(ctx context.Context, tenant string) (bool, Report) {
	t := eng.Tenants.GetOrCreate(tenant)
	if !t.claimLockdown(eng.now()) {
		return false, Report{}
	}
	return true, eng.lockdown(ctx, t, nil)
}

// Denies send and speak to the everyone role on every channel. The caller has already claimed the lockdown.
func (eng *Engine) lockdown(ctx context.Context, t *TenantState, joins []Join) Report {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "lockdown")
	defer span.End()

	tenant := t.Tenant
	logger := eng.Logger.With("tenant", tenant)
	rep := eng.denyChannels(ctx, t)

	// owner notification is advisory
	msg := fmt.Sprintf("[PhantomGuard] Join burst detected, tenant %s is now locked down.", tenant)
	if err := eng.Platform.NotifyOwner(ctx, tenant, msg); err != nil {
		logger.Debug("owner notification failed", "err", err)
	}

	for _, j := range joins {
		if err := eng.Flags.Add(ctx, flagstore.MemberKey(tenant, j.User), []string{FlagRaidJoin}); err != nil {
			logger.Warn("flagging raid member", "user", j.User, "err", err)
		}
	}
	if err := eng.Counters.Increment(ctx, "lockdown", tenant); err != nil {
		logger.Warn("incrementing lockdown counter", "err", err)
	}
	lockdownCount.Inc()
	if eng.Notifier != nil {
		if err := eng.Notifier.SendLockdown(ctx, tenant, len(joins)); err != nil {
			logger.Debug("lockdown notification failed", "err", err)
		}
	}
	logger.Warn("tenant locked down", "joins", len(joins))
	rep.Log(logger, "lockdown applied")
	return rep
}

// Issues the lockdown overwrites, then releases any unlock waiting on them.
func (eng *Engine) denyChannels(ctx context.Context, t *TenantState) Report {
	defer t.finishLockdown()

	var rep Report
	channels, err := eng.Platform.Channels(ctx, t.Tenant)
	if rep.Record("channels", t.Tenant, "", err) != nil {
		return rep
	}
	ow := platform.Overwrite{Deny: LockdownDeny}
	for _, ch := range channels {
		err := eng.Platform.SetChannelPermissions(ctx, t.Tenant, ch, platform.EveryoneTarget, ow)
		rep.Record("set-permissions", t.Tenant, ch, err)
	}
	return rep
}

// Reverses an active lockdown, allowing send and speak for the everyone role on every channel again.
//
// If the tenant is not locked, no platform commands are issued and WasLocked is false. A lockdown still issuing its overwrites is waited for. Runs to completion even if ctx is cancelled.
func (eng *Engine) Unlock(ctx context.Context, tenant string) UnlockResult {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "Unlock")
	defer span.End()

	t := eng.Tenants.Get(tenant)
	if t == nil || !t.claimUnlock() {
		return UnlockResult{WasLocked: false}
	}
	// lockdown stays set until overwrites are reissued, so a sweep can't re-trigger mid-unlock
	defer t.finishUnlock()

	logger := eng.Logger.With("tenant", tenant)
	var rep Report
	channels, err := eng.Platform.Channels(ctx, tenant)
	if rep.Record("channels", tenant, "", err) == nil {
		ow := platform.Overwrite{Allow: LockdownDeny}
		for _, ch := range channels {
			err := eng.Platform.SetChannelPermissions(ctx, tenant, ch, platform.EveryoneTarget, ow)
			rep.Record("set-permissions", tenant, ch, err)
		}
	}
	logger.Info("tenant unlocked")
	rep.Log(logger, "unlock applied")
	return UnlockResult{WasLocked: true, Report: rep}
}
