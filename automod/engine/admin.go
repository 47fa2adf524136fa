package engine

import (
	"context"
	"fmt"

	"github.com/phantomguard/warden/automod/countstore"
	"github.com/phantomguard/warden/automod/flagstore"
	"github.com/phantomguard/warden/automod/profile"
)

type ResetMuteResult struct {
	// members whose Muted role was removed
	Unmuted int
	// profiles moved from Muted back to Clean
	ProfilesReset int
	// the tenant has no Muted role
	RoleMissing bool
	Report      Report
}

// Returns every muted member of the tenant to Clean, and removes the Muted role from every member wearing it. Shadowbanned members are not affected. Runs to completion even if ctx is cancelled.
func (eng *Engine) ResetMute(ctx context.Context, tenant string) ResetMuteResult {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "ResetMute")
	defer span.End()

	logger := eng.Logger.With("tenant", tenant)
	now := eng.now()
	var res ResetMuteResult

	var reset []string
	eng.Profiles.RangeTenant(tenant, func(p *profile.Profile) bool {
		p.Lock()
		defer p.Unlock()
		if p.State == profile.Muted {
			p.State = profile.Clean
			p.Log(now, profile.ActionResetMute, "mute reset by administrator")
			reset = append(reset, p.Key.User)
		}
		return true
	})
	res.ProfilesReset = len(reset)
	for _, user := range reset {
		if err := eng.Flags.Remove(ctx, flagstore.MemberKey(tenant, user), []string{FlagAutoMuted}); err != nil {
			logger.Warn("removing mute flag", "user", user, "err", err)
		}
	}

	roleID, err := eng.lookupRoleID(ctx, tenant, eng.Config.MutedRoleName)
	if err != nil {
		res.Report.Record("find-role", tenant, eng.Config.MutedRoleName, err)
		res.Report.Log(logger, "mute reset incomplete")
		return res
	}
	if roleID == "" {
		logger.Info("mute reset: muted role not found")
		res.RoleMissing = true
		return res
	}

	members, err := eng.Platform.MembersWithRole(ctx, tenant, roleID)
	if res.Report.Record("members-with-role", tenant, roleID, err) != nil {
		eng.purgeStaleRole(ctx, tenant, eng.Config.MutedRoleName, err)
		res.Report.Log(logger, "mute reset incomplete")
		return res
	}
	for _, user := range members {
		err := eng.Platform.RemoveRole(ctx, tenant, user, roleID)
		if res.Report.Record("remove-role", tenant, user, err) == nil {
			res.Unmuted++
		}
	}
	logger.Info("mute reset", "unmuted", res.Unmuted, "profiles", res.ProfilesReset)
	res.Report.Log(logger, "mute reset applied")
	return res
}

// Clears the message window and suspicion score of every profile in the tenant. Returns the number of profiles reset.
func (eng *Engine) ResetSpam(ctx context.Context, tenant string) int {
	now := eng.now()
	n := 0
	eng.Profiles.RangeTenant(tenant, func(p *profile.Profile) bool {
		p.Lock()
		defer p.Unlock()
		p.ResetSpam(now)
		n++
		return true
	})
	eng.Logger.Info("spam state reset", "tenant", tenant, "profiles", n)
	return n
}

// Returns an administrator report on a member, or nil if the member has never been seen in the tenant.
func (eng *Engine) Info(ctx context.Context, tenant, user string) (*profile.Summary, error) {
	p := eng.Profiles.Get(profile.Key{Tenant: tenant, User: user})
	if p == nil {
		return nil, nil
	}
	p.Lock()
	sum := p.Summary()
	p.Unlock()

	flags, err := eng.Flags.Get(ctx, flagstore.MemberKey(tenant, user))
	if err != nil {
		return nil, fmt.Errorf("reading flags: %w", err)
	}
	sum.Flags = flags
	return &sum, nil
}

// Counter names reported by Stats
var StatsCounters = []string{"message", "join", "mute", "shadowban", "lockdown"}

type TenantStats struct {
	Tenant   string         `json:"tenant"`
	Locked   bool           `json:"locked"`
	Profiles int            `json:"profiles"`
	Day      map[string]int `json:"day"`
	Total    map[string]int `json:"total"`
}

// Activity counters for a tenant.
func (eng *Engine) Stats(ctx context.Context, tenant string) (*TenantStats, error) {
	day, err := countstore.GetCounts(ctx, eng.Counters, StatsCounters, tenant, countstore.PeriodDay)
	if err != nil {
		return nil, err
	}
	total, err := countstore.GetCounts(ctx, eng.Counters, StatsCounters, tenant, countstore.PeriodTotal)
	if err != nil {
		return nil, err
	}
	n := 0
	eng.Profiles.RangeTenant(tenant, func(_ *profile.Profile) bool {
		n++
		return true
	})
	locked := false
	if t := eng.Tenants.Get(tenant); t != nil {
		locked = t.Locked()
	}
	return &TenantStats{
		Tenant:   tenant,
		Locked:   locked,
		Profiles: n,
		Day:      day,
		Total:    total,
	}, nil
}
