package engine

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Join struct {
	User string
	Time time.Time
}

// Per-tenant raid detector and lockdown state. Created on first join and kept for the lifetime of the process.
type TenantState struct {
	mu sync.Mutex

	Tenant      string
	RecentJoins []Join
	Lockdown    bool
	LockedAt    time.Time
	// set while a lockdown is issuing deny overwrites; unlocks wait on lockDone
	locking  bool
	lockDone *sync.Cond
	// set while an unlock is reissuing channel overwrites
	unlocking bool
}

func (t *TenantState) AddJoin(user string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RecentJoins = append(t.RecentJoins, Join{User: user, Time: ts})
}

// Prunes joins outside the window and, if enough remain and the tenant isn't already locked, claims the lockdown.
//
// Returns the joins inside the window, and whether this call claimed the lockdown.
func (t *TenantState) sweep(now time.Time, window time.Duration, threshold int) ([]Join, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	recent := make([]Join, 0, len(t.RecentJoins))
	for _, j := range t.RecentJoins {
		if now.Sub(j.Time) < window {
			recent = append(recent, j)
		}
	}
	t.RecentJoins = recent
	if len(recent) < threshold || t.Lockdown {
		return nil, false
	}
	t.Lockdown = true
	t.LockedAt = now
	t.locking = true
	out := make([]Join, len(recent))
	copy(out, recent)
	return out, true
}

// Claims the lockdown unconditionally. Returns false if the tenant was already locked.
func (t *TenantState) claimLockdown(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Lockdown {
		return false
	}
	t.Lockdown = true
	t.LockedAt = now
	t.locking = true
	return true
}

// Marks the deny overwrites of a claimed lockdown as issued, releasing any waiting unlock.
func (t *TenantState) finishLockdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locking = false
	if t.lockDone != nil {
		t.lockDone.Broadcast()
	}
}

// Returns false if the tenant is not locked, or an unlock is already in progress. Waits for an in-flight lockdown to finish issuing its overwrites first.
func (t *TenantState) claimUnlock() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.locking {
		if t.lockDone == nil {
			t.lockDone = sync.NewCond(&t.mu)
		}
		t.lockDone.Wait()
	}
	if !t.Lockdown || t.unlocking {
		return false
	}
	t.unlocking = true
	return true
}

// Clears the lockdown. The join window is kept: a burst still inside it locks the tenant again on the next sweep.
func (t *TenantState) finishUnlock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Lockdown = false
	t.LockedAt = time.Time{}
	t.unlocking = false
}

func (t *TenantState) Locked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Lockdown
}

func (t *TenantState) JoinCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.RecentJoins)
}

// Concurrent registry of per-tenant state.
type TenantRegistry struct {
	tenants *xsync.MapOf[string, *TenantState]
}

func NewTenantRegistry() *TenantRegistry {
	return &TenantRegistry{
		tenants: xsync.NewMapOf[string, *TenantState](),
	}
}

func (r *TenantRegistry) GetOrCreate(tenant string) *TenantState {
	t, _ := r.tenants.LoadOrCompute(tenant, func() *TenantState {
		return &TenantState{Tenant: tenant, RecentJoins: []Join{}}
	})
	return t
}

// Returns nil if the tenant has never been seen.
func (r *TenantRegistry) Get(tenant string) *TenantState {
	t, ok := r.tenants.Load(tenant)
	if !ok {
		return nil
	}
	return t
}

func (r *TenantRegistry) Range(f func(t *TenantState) bool) {
	r.tenants.Range(func(_ string, t *TenantState) bool {
		return f(t)
	})
}
