package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/phantomguard/warden/automod/platform"
)

var roleCacheName = "role"

func roleCacheKey(tenant, name string) string {
	return tenant + "/" + name
}

func (eng *Engine) mutedRole() RoleSpec {
	return RoleSpec{Name: eng.Config.MutedRoleName, Deny: EnforcementDeny}
}

func (eng *Engine) shadowbanRole() RoleSpec {
	return RoleSpec{Name: eng.Config.ShadowbanRoleName, Deny: EnforcementDeny}
}

// Returns the ID of the named role, or the empty string if the tenant has no such role. Hits the cache first.
func (eng *Engine) lookupRoleID(ctx context.Context, tenant, name string) (string, error) {
	id, err := eng.Cache.Get(ctx, roleCacheName, roleCacheKey(tenant, name))
	if err != nil {
		eng.Logger.Warn("reading role cache", "tenant", tenant, "role", name, "err", err)
	} else if id != "" {
		return id, nil
	}
	role, err := eng.Platform.FindRole(ctx, tenant, name)
	if err != nil {
		return "", fmt.Errorf("finding role %s: %w", name, err)
	}
	if role == nil {
		return "", nil
	}
	if err := eng.Cache.Set(ctx, roleCacheName, roleCacheKey(tenant, name), role.ID); err != nil {
		eng.Logger.Warn("writing role cache", "tenant", tenant, "role", name, "err", err)
	}
	return role.ID, nil
}

type ensureResult struct {
	role   *platform.Role
	report Report
}

// Returns the enforcement role, creating it if it doesn't exist. A newly created role gets the deny overwrite applied to every channel of the tenant.
//
// Returns a nil role if the role could not be found or created; the Report holds the reason. Concurrent calls for the same tenant and role share a single platform round-trip.
func (eng *Engine) EnsureRole(ctx context.Context, tenant string, spec RoleSpec) (*platform.Role, Report) {
	v, _, _ := eng.roleFlight.Do(roleCacheKey(tenant, spec.Name), func() (any, error) {
		role, rep := eng.ensureRole(ctx, tenant, spec)
		return ensureResult{role: role, report: rep}, nil
	})
	res := v.(ensureResult)
	return res.role, res.report
}

func (eng *Engine) ensureRole(ctx context.Context, tenant string, spec RoleSpec) (*platform.Role, Report) {
	var rep Report
	id, err := eng.lookupRoleID(ctx, tenant, spec.Name)
	if err != nil {
		rep.Record("find-role", tenant, spec.Name, err)
		return nil, rep
	}
	if id != "" {
		return &platform.Role{ID: id, Name: spec.Name}, rep
	}

	logger := eng.Logger.With("tenant", tenant, "role", spec.Name)
	logger.Info("enforcement role missing, creating")
	role, err := eng.Platform.CreateRole(ctx, tenant, spec.Name, spec.Perms)
	if rep.Record("create-role", tenant, spec.Name, err) != nil {
		return nil, rep
	}
	rolesCreatedCount.WithLabelValues(spec.Name).Inc()
	if err := eng.Cache.Set(ctx, roleCacheName, roleCacheKey(tenant, spec.Name), role.ID); err != nil {
		logger.Warn("writing role cache", "err", err)
	}

	channels, err := eng.Platform.Channels(ctx, tenant)
	if rep.Record("channels", tenant, "", err) != nil {
		return role, rep
	}
	ow := platform.Overwrite{Deny: spec.Deny}
	for _, ch := range channels {
		err := eng.Platform.SetChannelPermissions(ctx, tenant, ch, role.ID, ow)
		rep.Record("set-permissions", tenant, ch, err)
	}
	return role, rep
}

// Makes sure every tenant has both enforcement roles, recreating any that were deleted out-of-band. Safe to run repeatedly.
func (eng *Engine) ReconcileRoles(ctx context.Context) Report {
	ctx, span := tracer.Start(ctx, "ReconcileRoles")
	defer span.End()

	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("roles").Observe(time.Since(start).Seconds())
	}()

	var rep Report
	tenants, err := eng.Platform.Tenants(ctx)
	if rep.Record("tenants", "", "", err) != nil {
		rep.Log(eng.Logger, "role reconciliation failed")
		return rep
	}
	for _, tenant := range tenants {
		for _, spec := range eng.Config.EnforcementRoles() {
			// always re-check the platform, so roles deleted by an administrator get noticed
			if err := eng.Cache.Purge(ctx, roleCacheName, roleCacheKey(tenant, spec.Name)); err != nil {
				eng.Logger.Warn("purging role cache", "tenant", tenant, "role", spec.Name, "err", err)
			}
			_, ensureRep := eng.EnsureRole(ctx, tenant, spec)
			rep.Merge(ensureRep)
		}
	}
	rep.Log(eng.Logger, "role reconciliation complete")
	return rep
}

// Runs ReconcileRoles immediately, then every RoleSweepInterval until the context is cancelled. An in-flight sweep always completes.
func (eng *Engine) RunRoleReconciler(ctx context.Context) error {
	if eng.Config.RoleSweepInterval <= 0 {
		return fmt.Errorf("role sweep interval must be positive: %s", eng.Config.RoleSweepInterval)
	}
	eng.ReconcileRoles(context.WithoutCancel(ctx))
	ticker := time.NewTicker(eng.Config.RoleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			eng.ReconcileRoles(context.WithoutCancel(ctx))
		}
	}
}
