// Outbound command surface of the chat platform: roles, channel permission overwrites, message deletion, audit posts, and owner notifications.
//
// The engine only talks to the platform through the Platform interface. The `discord` sub-package implements it on top of discordgo; MockPlatform is an in-memory implementation for tests.
package platform

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Returned (possibly wrapped) when a tenant, role, channel, or member lookup misses.
var ErrNotFound = errors.New("not found")

// Permission overwrite target meaning the tenant's default ("everyone") role.
const EveryoneTarget = "@everyone"

// Bit set of the communication permissions the engine manages.
type Permission uint8

const (
	PermSend Permission = 1 << iota
	PermSpeak
	PermReact
)

func (p Permission) Has(o Permission) bool {
	return p&o == o
}

func (p Permission) String() string {
	var parts []string
	if p.Has(PermSend) {
		parts = append(parts, "send")
	}
	if p.Has(PermSpeak) {
		parts = append(parts, "speak")
	}
	if p.Has(PermReact) {
		parts = append(parts, "react")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Channel-level permission overwrite. Bits in Allow are granted, bits in Deny are revoked, and any other permission on the existing overwrite is left as it was.
type Overwrite struct {
	Allow Permission
	Deny  Permission
}

// Applies the overwrite on top of an existing (allow, deny) pair and returns the merged pair.
func (o Overwrite) Merge(allow, deny Permission) (Permission, Permission) {
	allow = (allow &^ o.Deny) | o.Allow
	deny = (deny &^ o.Allow) | o.Deny
	return allow, deny
}

type Role struct {
	ID   string
	Name string
}

// Record posted to a tenant's moderation audit channel.
type AuditRecord struct {
	Title      string
	AuthorID   string
	AuthorName string
	ChannelID  string
	Content    string
	Time       time.Time
}

type Platform interface {
	// Tenants the bot is currently a member of
	Tenants(ctx context.Context) ([]string, error)
	Channels(ctx context.Context, tenant string) ([]string, error)

	// Returns nil (and no error) if no role with this name exists
	FindRole(ctx context.Context, tenant, name string) (*Role, error)
	CreateRole(ctx context.Context, tenant, name string, perms Permission) (*Role, error)
	AssignRole(ctx context.Context, tenant, user, roleID string) error
	RemoveRole(ctx context.Context, tenant, user, roleID string) error
	MembersWithRole(ctx context.Context, tenant, roleID string) ([]string, error)

	// target is a role ID, or EveryoneTarget
	SetChannelPermissions(ctx context.Context, tenant, channel, target string, ow Overwrite) error

	DeleteMessage(ctx context.Context, tenant, channel, message string) error
	SendAudit(ctx context.Context, tenant, channelName string, rec AuditRecord) error
	NotifyOwner(ctx context.Context, tenant, content string) error
}
