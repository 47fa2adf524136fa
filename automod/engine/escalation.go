package engine

import (
	"context"
	"errors"
	"time"

	"github.com/phantomguard/warden/automod/platform"
	"github.com/phantomguard/warden/automod/profile"
)

// Decides and claims the next escalation state for a profile. Caller holds the profile lock.
//
// Returns the state before and after. The new state is written to the profile before any platform command is issued, so concurrent evaluations of the same profile never escalate twice. Shadowbanned profiles are never re-evaluated.
func (eng *Engine) claimEscalation(p *profile.Profile, ts time.Time) (profile.State, profile.State) {
	prior := p.State
	if prior == profile.Shadowbanned || p.Score < eng.Config.SuspicionLimit {
		return prior, prior
	}
	switch prior {
	case profile.Clean:
		p.State = profile.Muted
		p.Log(ts, profile.ActionMute, "auto mute triggered")
	case profile.Muted:
		p.State = profile.Shadowbanned
		p.Log(ts, profile.ActionShadowban, "auto shadowban triggered")
	}
	return prior, p.State
}

// Issues the role commands for a member who was just muted.
func (eng *Engine) applyMute(ctx context.Context, tenant, user string) Report {
	ctx, span := tracer.Start(ctx, "applyMute")
	defer span.End()

	logger := eng.Logger.With("tenant", tenant, "user", user)
	var rep Report
	role, ensureRep := eng.EnsureRole(ctx, tenant, eng.mutedRole())
	rep.Merge(ensureRep)
	if role == nil {
		rep.Log(logger, "mute incomplete")
		return rep
	}
	err := eng.Platform.AssignRole(ctx, tenant, user, role.ID)
	if rep.Record("assign-role", tenant, user, err) != nil {
		eng.purgeStaleRole(ctx, tenant, role.Name, err)
	}
	actionEscalationCount.WithLabelValues("mute").Inc()
	logger.Info("member muted", "role", role.ID)
	rep.Log(logger, "mute applied")
	return rep
}

// Issues the role commands for a member who was just moved from muted to shadowbanned.
func (eng *Engine) applyShadowban(ctx context.Context, tenant, user string) Report {
	ctx, span := tracer.Start(ctx, "applyShadowban")
	defer span.End()

	logger := eng.Logger.With("tenant", tenant, "user", user)
	var rep Report

	mutedID, err := eng.lookupRoleID(ctx, tenant, eng.Config.MutedRoleName)
	if err != nil {
		rep.Record("find-role", tenant, eng.Config.MutedRoleName, err)
	} else if mutedID != "" {
		err = eng.Platform.RemoveRole(ctx, tenant, user, mutedID)
		if rep.Record("remove-role", tenant, user, err) != nil {
			eng.purgeStaleRole(ctx, tenant, eng.Config.MutedRoleName, err)
		}
	}

	role, ensureRep := eng.EnsureRole(ctx, tenant, eng.shadowbanRole())
	rep.Merge(ensureRep)
	if role == nil {
		rep.Log(logger, "shadowban incomplete")
		return rep
	}
	err = eng.Platform.AssignRole(ctx, tenant, user, role.ID)
	if rep.Record("assign-role", tenant, user, err) != nil {
		eng.purgeStaleRole(ctx, tenant, role.Name, err)
	}
	actionEscalationCount.WithLabelValues("shadowban").Inc()
	logger.Info("member shadowbanned", "role", role.ID)
	rep.Log(logger, "shadowban applied")
	return rep
}

// Drops a cached role ID when the platform reports it no longer exists. The next lookup, or reconciler sweep, recreates it.
func (eng *Engine) purgeStaleRole(ctx context.Context, tenant, name string, err error) {
	if !errors.Is(err, platform.ErrNotFound) {
		return
	}
	if perr := eng.Cache.Purge(ctx, roleCacheName, roleCacheKey(tenant, name)); perr != nil {
		eng.Logger.Warn("purging role cache", "tenant", tenant, "role", name, "err", perr)
	}
}
