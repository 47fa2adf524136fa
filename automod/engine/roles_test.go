package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/phantomguard/warden/automod/platform"

	"github.com/stretchr/testify/assert"
)

func TestReconcileRoles(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()
	mock.AddTenant("tenant-2", "lobby")

	rep := eng.ReconcileRoles(ctx)
	assert.True(rep.OK())
	assert.Equal(2, mock.CountCalls("create-role", "tenant-1"))
	assert.Equal(2, mock.CountCalls("create-role", "tenant-2"))
	assert.Equal(4, mock.CountCalls("set-permissions", "tenant-1"))

	muted, err := mock.FindRole(ctx, "tenant-1", "Muted")
	assert.NoError(err)
	assert.NotNil(muted)
	ow := mock.ChannelOverwrite("tenant-1", "random", muted.ID)
	assert.Equal(EnforcementDeny, ow.Deny)

	// idempotent
	mock.ResetCalls()
	rep = eng.ReconcileRoles(ctx)
	assert.True(rep.OK())
	assert.Equal(0, mock.CountCalls("create-role", ""))
	assert.Equal(0, mock.CountCalls("set-permissions", ""))

	// heals an out-of-band deletion
	mock.DeleteRoleByName("tenant-2", "ShadowBanned")
	mock.ResetCalls()
	eng.ReconcileRoles(ctx)
	assert.Equal(0, mock.CountCalls("create-role", "tenant-1"))
	assert.Equal(1, mock.CountCalls("create-role", "tenant-2"))
	sb, err := mock.FindRole(ctx, "tenant-2", "ShadowBanned")
	assert.NoError(err)
	assert.NotNil(sb)
}

func TestReconcileRolesRetriesFailures(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()
	mock.Failures["create-role/ShadowBanned"] = errors.New("rate limited")

	rep := eng.ReconcileRoles(ctx)
	assert.Equal(1, len(rep.Failures))
	var cerr *CommandError
	assert.True(errors.As(rep.Err(), &cerr))
	assert.Equal("create-role", cerr.Op)

	delete(mock.Failures, "create-role/ShadowBanned")
	mock.ResetCalls()
	rep = eng.ReconcileRoles(ctx)
	assert.True(rep.OK())
	assert.Equal(1, mock.CountCalls("create-role", "tenant-1"))
}

func TestEnsureRoleLookupFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()
	mock.Failures["find-role"] = errors.New("gateway unavailable")

	role, rep := eng.EnsureRole(ctx, "tenant-1", eng.mutedRole())
	assert.Nil(role)
	assert.False(rep.OK())
	assert.Equal(0, mock.CountCalls("create-role", ""))
}

func TestReportErr(t *testing.T) {
	assert := assert.New(t)

	var rep Report
	assert.NoError(rep.Err())
	rep.Record("assign-role", "t", "u", nil)
	rep.Record("assign-role", "t", "u2", platform.ErrNotFound)
	assert.Equal(2, rep.Attempted)
	assert.Equal(1, rep.Succeeded)
	assert.ErrorIs(rep.Err(), platform.ErrNotFound)

	var other Report
	other.Record("remove-role", "t", "u3", nil)
	rep.Merge(other)
	assert.Equal(3, rep.Attempted)
	assert.Equal(2, rep.Succeeded)
}
