// Automod component for private moderation flags on members.
//
// Flags are short strings (eg, "auto-muted", "raid-join") attached to a key. The engine keys flags by tenant and member, and includes them in administrator reports.
package flagstore

import (
	"context"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

// Key under which flags for a member of a tenant are stored
func MemberKey(tenant, user string) string {
	return tenant + "/" + user
}
