package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phantomguard/warden/automod/platform"

	"github.com/stretchr/testify/assert"
)

func TestUnlockNotLocked(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()

	// never-seen tenant
	res := eng.Unlock(ctx, "tenant-1")
	assert.False(res.WasLocked)

	// known tenant, not locked
	eng.ProcessJoin(ctx, "tenant-1", "u1", FixtureTime)
	res = eng.Unlock(ctx, "tenant-1")
	assert.False(res.WasLocked)
	assert.Equal(0, mock.CountCalls("set-permissions", ""))
}

func TestLockdownUnlock(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()

	// pre-existing overwrite bits are preserved
	assert.NoError(mock.SetChannelPermissions(ctx, "tenant-1", "general", platform.EveryoneTarget, platform.Overwrite{Deny: platform.PermReact}))
	mock.ResetCalls()

	ok, rep := eng.Lockdown(ctx, "tenant-1")
	assert.True(ok)
	assert.True(rep.OK())
	ow := mock.ChannelOverwrite("tenant-1", "general", platform.EveryoneTarget)
	assert.Equal(platform.PermSend|platform.PermSpeak|platform.PermReact, ow.Deny)

	// second manual lockdown is a no-op
	ok, _ = eng.Lockdown(ctx, "tenant-1")
	assert.False(ok)
	assert.Equal(2, mock.CountCalls("set-permissions", "tenant-1"))

	res := eng.Unlock(ctx, "tenant-1")
	assert.True(res.WasLocked)
	assert.True(res.Report.OK())
	assert.False(eng.Tenants.Get("tenant-1").Locked())
	ow = mock.ChannelOverwrite("tenant-1", "general", platform.EveryoneTarget)
	assert.Equal(platform.PermReact, ow.Deny)
	assert.Equal(platform.PermSend|platform.PermSpeak, ow.Allow)

	// and again: nothing to do
	res = eng.Unlock(ctx, "tenant-1")
	assert.False(res.WasLocked)
	assert.Equal(4, mock.CountCalls("set-permissions", "tenant-1"))
}

func TestLockdownPartialFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()
	mock.Failures["set-permissions/general"] = errors.New("missing access")
	mock.Failures["notify-owner"] = errors.New("cannot send messages to this user")

	ok, rep := eng.Lockdown(ctx, "tenant-1")
	assert.True(ok)
	assert.Equal(1, len(rep.Failures))
	assert.Equal("general", rep.Failures[0].Target)
	assert.Error(rep.Err())
	assert.True(eng.Tenants.Get("tenant-1").Locked())

	// the other channel was still locked
	ow := mock.ChannelOverwrite("tenant-1", "random", platform.EveryoneTarget)
	assert.Equal(LockdownDeny, ow.Deny)

	res := eng.Unlock(ctx, "tenant-1")
	assert.True(res.WasLocked)
	assert.Equal(1, len(res.Report.Failures))
	assert.False(eng.Tenants.Get("tenant-1").Locked())
}

func TestUnlockKeepsJoinWindow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	for _, u := range []string{"a", "b", "c", "d", "e"} {
		eng.ProcessJoin(ctx, "tenant-1", u, FixtureTime)
	}
	eng.SweepJoins(ctx, FixtureTime)
	assert.True(eng.Tenants.Get("tenant-1").Locked())

	assert.True(eng.Unlock(ctx, "tenant-1").WasLocked)
	assert.False(eng.Tenants.Get("tenant-1").Locked())

	// the burst is still inside the join window
	eng.SweepJoins(ctx, FixtureTime.Add(6*time.Second))
	assert.True(eng.Tenants.Get("tenant-1").Locked())

	// once it ages out, an unlock sticks
	assert.True(eng.Unlock(ctx, "tenant-1").WasLocked)
	eng.SweepJoins(ctx, FixtureTime.Add(16*time.Second))
	assert.False(eng.Tenants.Get("tenant-1").Locked())
	assert.Equal(0, eng.Tenants.Get("tenant-1").JoinCount())
}

// blocks the first deny overwrite until released
type gatedPlatform struct {
	*platform.MockPlatform
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedPlatform) SetChannelPermissions(ctx context.Context, tenant, channel, target string, ow platform.Overwrite) error {
	if ow.Deny != 0 {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.MockPlatform.SetChannelPermissions(ctx, tenant, channel, target, ow)
}

func TestUnlockWaitsForLockdown(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mock := EngineTestFixture()
	gated := &gatedPlatform{
		MockPlatform: mock,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	eng.Platform = gated

	for _, u := range []string{"a", "b", "c", "d", "e"} {
		eng.ProcessJoin(ctx, "tenant-1", u, FixtureTime)
	}
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		eng.SweepJoins(ctx, FixtureTime)
	}()
	<-gated.entered

	var res UnlockResult
	unlockDone := make(chan struct{})
	go func() {
		defer close(unlockDone)
		res = eng.Unlock(ctx, "tenant-1")
	}()

	select {
	case <-unlockDone:
		t.Fatal("unlock finished while lockdown overwrites were in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	<-sweepDone
	<-unlockDone

	assert.True(res.WasLocked)
	assert.True(res.Report.OK())
	assert.False(eng.Tenants.Get("tenant-1").Locked())
	for _, ch := range []string{"general", "random"} {
		ow := mock.ChannelOverwrite("tenant-1", ch, platform.EveryoneTarget)
		assert.False(ow.Deny.Has(platform.PermSend), ch)
		assert.True(ow.Allow.Has(platform.PermSend|platform.PermSpeak), ch)
	}
}

// fails commands once the caller's context is done
type ctxPlatform struct {
	*platform.MockPlatform
}

func (p ctxPlatform) Channels(ctx context.Context, tenant string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.MockPlatform.Channels(ctx, tenant)
}

func (p ctxPlatform) SetChannelPermissions(ctx context.Context, tenant, channel, target string, ow platform.Overwrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.MockPlatform.SetChannelPermissions(ctx, tenant, channel, target, ow)
}

func (p ctxPlatform) RemoveRole(ctx context.Context, tenant, user, roleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.MockPlatform.RemoveRole(ctx, tenant, user, roleID)
}

func TestAdminCommandsIgnoreCancellation(t *testing.T) {
	assert := assert.New(t)
	eng, mock := EngineTestFixture()
	eng.Platform = ctxPlatform{MockPlatform: mock}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, rep := eng.Lockdown(ctx, "tenant-1")
	assert.True(ok)
	assert.True(rep.OK())
	assert.True(mock.ChannelOverwrite("tenant-1", "general", platform.EveryoneTarget).Deny.Has(platform.PermSend))

	res := eng.Unlock(ctx, "tenant-1")
	assert.True(res.WasLocked)
	assert.True(res.Report.OK())
	assert.False(eng.Tenants.Get("tenant-1").Locked())
	assert.False(mock.ChannelOverwrite("tenant-1", "random", platform.EveryoneTarget).Deny.Has(platform.PermSend))

	role, _ := eng.EnsureRole(context.Background(), "tenant-1", eng.mutedRole())
	assert.NoError(mock.AssignRole(context.Background(), "tenant-1", "u1", role.ID))
	mres := eng.ResetMute(ctx, "tenant-1")
	assert.True(mres.Report.OK())
	assert.Equal(1, mres.Unmuted)
	assert.False(mock.MemberHasRole("tenant-1", "u1", "Muted"))
}
