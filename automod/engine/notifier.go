package engine

import (
	"context"
)

// Interface for a type that can handle sending notifications
type Notifier interface {
	SendEscalation(ctx context.Context, service string, c *MessageContext, v Verdict) error
	SendLockdown(ctx context.Context, tenant string, joins int) error
}
