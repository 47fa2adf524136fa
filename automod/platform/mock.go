package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// A single outbound command observed by MockPlatform.
type Call struct {
	Op        string
	Tenant    string
	Target    string
	Arg       string
	Overwrite Overwrite
}

type MockTenant struct {
	Channels    []string
	Roles       map[string]*Role
	Members     map[string]map[string]bool      // user -> role IDs
	Permissions map[string]map[string]Overwrite // channel -> target -> (allow, deny)
	Audit       []AuditRecord
	OwnerDMs    []string
	Deleted     []string
}

// In-memory Platform for tests. Records every call and can be told to fail specific operations.
type MockPlatform struct {
	lk      sync.Mutex
	tenants map[string]*MockTenant
	nextID  int

	Calls []Call
	// keyed by "op" or "op/target"; the error is returned instead of performing the call
	Failures map[string]error
}

var _ Platform = (*MockPlatform)(nil)

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		tenants:  make(map[string]*MockTenant),
		Failures: make(map[string]error),
	}
}

func (m *MockPlatform) AddTenant(tenant string, channels ...string) *MockTenant {
	m.lk.Lock()
	defer m.lk.Unlock()
	t := &MockTenant{
		Channels:    channels,
		Roles:       make(map[string]*Role),
		Members:     make(map[string]map[string]bool),
		Permissions: make(map[string]map[string]Overwrite),
	}
	m.tenants[tenant] = t
	return t
}

func (m *MockPlatform) Tenant(tenant string) *MockTenant {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.tenants[tenant]
}

// Removes a role out-of-band, as an administrator would.
func (m *MockPlatform) DeleteRoleByName(tenant, name string) {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, ok := m.tenants[tenant]
	if !ok {
		return
	}
	for id, r := range t.Roles {
		if r.Name == name {
			delete(t.Roles, id)
			for _, roles := range t.Members {
				delete(roles, id)
			}
		}
	}
}

func (m *MockPlatform) MemberHasRole(tenant, user, roleName string) bool {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, ok := m.tenants[tenant]
	if !ok {
		return false
	}
	for id := range t.Members[user] {
		if r, ok := t.Roles[id]; ok && r.Name == roleName {
			return true
		}
	}
	return false
}

func (m *MockPlatform) ChannelOverwrite(tenant, channel, target string) Overwrite {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, ok := m.tenants[tenant]
	if !ok {
		return Overwrite{}
	}
	return t.Permissions[channel][target]
}

// Number of recorded calls for op (optionally restricted to a tenant)
func (m *MockPlatform) CountCalls(op, tenant string) int {
	m.lk.Lock()
	defer m.lk.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Op == op && (tenant == "" || c.Tenant == tenant) {
			n++
		}
	}
	return n
}

func (m *MockPlatform) ResetCalls() {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.Calls = nil
}

// caller holds lock
func (m *MockPlatform) record(op, tenant, target, arg string) (*MockTenant, error) {
	m.Calls = append(m.Calls, Call{Op: op, Tenant: tenant, Target: target, Arg: arg})
	if err, ok := m.Failures[op+"/"+target]; ok {
		return nil, err
	}
	if err, ok := m.Failures[op]; ok {
		return nil, err
	}
	t, ok := m.tenants[tenant]
	if !ok && tenant != "" {
		return nil, fmt.Errorf("tenant %s: %w", tenant, ErrNotFound)
	}
	return t, nil
}

func (m *MockPlatform) Tenants(ctx context.Context) ([]string, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if _, err := m.record("tenants", "", "", ""); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.tenants))
	for id := range m.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockPlatform) Channels(ctx context.Context, tenant string) ([]string, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("channels", tenant, "", "")
	if err != nil {
		return nil, err
	}
	return append([]string{}, t.Channels...), nil
}

func (m *MockPlatform) FindRole(ctx context.Context, tenant, name string) (*Role, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("find-role", tenant, name, "")
	if err != nil {
		return nil, err
	}
	for _, r := range t.Roles {
		if r.Name == name {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MockPlatform) CreateRole(ctx context.Context, tenant, name string, perms Permission) (*Role, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("create-role", tenant, name, perms.String())
	if err != nil {
		return nil, err
	}
	m.nextID++
	r := &Role{ID: fmt.Sprintf("role-%d", m.nextID), Name: name}
	t.Roles[r.ID] = r
	out := *r
	return &out, nil
}

func (m *MockPlatform) AssignRole(ctx context.Context, tenant, user, roleID string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("assign-role", tenant, user, roleID)
	if err != nil {
		return err
	}
	if _, ok := t.Roles[roleID]; !ok {
		return fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	roles, ok := t.Members[user]
	if !ok {
		roles = make(map[string]bool)
		t.Members[user] = roles
	}
	roles[roleID] = true
	return nil
}

func (m *MockPlatform) RemoveRole(ctx context.Context, tenant, user, roleID string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("remove-role", tenant, user, roleID)
	if err != nil {
		return err
	}
	delete(t.Members[user], roleID)
	return nil
}

func (m *MockPlatform) MembersWithRole(ctx context.Context, tenant, roleID string) ([]string, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("members-with-role", tenant, roleID, "")
	if err != nil {
		return nil, err
	}
	out := []string{}
	for user, roles := range t.Members {
		if roles[roleID] {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockPlatform) SetChannelPermissions(ctx context.Context, tenant, channel, target string, ow Overwrite) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("set-permissions", tenant, channel, target)
	m.Calls[len(m.Calls)-1].Overwrite = ow
	if err != nil {
		return err
	}
	perms, ok := t.Permissions[channel]
	if !ok {
		perms = make(map[string]Overwrite)
		t.Permissions[channel] = perms
	}
	cur := perms[target]
	allow, deny := ow.Merge(cur.Allow, cur.Deny)
	perms[target] = Overwrite{Allow: allow, Deny: deny}
	return nil
}

func (m *MockPlatform) DeleteMessage(ctx context.Context, tenant, channel, message string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("delete-message", tenant, channel, message)
	if err != nil {
		return err
	}
	t.Deleted = append(t.Deleted, message)
	return nil
}

func (m *MockPlatform) SendAudit(ctx context.Context, tenant, channelName string, rec AuditRecord) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("send-audit", tenant, channelName, rec.Content)
	if err != nil {
		return err
	}
	t.Audit = append(t.Audit, rec)
	return nil
}

func (m *MockPlatform) NotifyOwner(ctx context.Context, tenant, content string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	t, err := m.record("notify-owner", tenant, "", content)
	if err != nil {
		return err
	}
	t.OwnerDMs = append(t.OwnerDMs, content)
	return nil
}
