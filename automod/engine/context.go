package engine

import (
	"context"
	"log/slog"

	"github.com/phantomguard/warden/automod/profile"
)

// The primary interface exposed to rules. All other contexts derive from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// Snapshot of the author's profile, taken after the current message was recorded.
//
// Immutable
type ProfileView struct {
	// messages inside the spam window, including the current one
	RecentMessages int
	MentionCount   int
	LinkCount      int
	// score before this message's delta is applied
	Score int
	State profile.State
}

// Represents a single message being scored.
type MessageContext struct {
	BaseContext

	Message MessageEvent
	Profile ProfileView
}

func NewMessageContext(ctx context.Context, eng *Engine, evt MessageEvent, view ProfileView) MessageContext {
	return MessageContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("tenant", evt.Tenant, "user", evt.User, "channel", evt.Channel),
			engine:  eng,
			effects: &Effects{},
		},
		Message: evt,
		Profile: view,
	}
}

// Engine configuration (thresholds and role names)
func (c *BaseContext) Config() Config {
	return c.engine.Config
}

// request external state via engine (indirect)
func (c *BaseContext) GetCount(name, val, period string) int {
	out, err := c.engine.Counters.GetCount(c.Ctx, name, val, period)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return out
}

func (c *BaseContext) InSet(name, val string) bool {
	out, err := c.engine.Sets.InSet(c.Ctx, name, val)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return false
	}
	return out
}

// All members of the named set; empty if there was a problem reading it.
func (c *BaseContext) SetMembers(name string) []string {
	out, err := c.engine.Sets.Members(c.Ctx, name)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return nil
	}
	return out
}

// Returns a pointer to the underlying automod engine. This usually should NOT be used in rules.
func (c *BaseContext) InternalEngine() *Engine {
	return c.engine
}

// update effects (indirect) ======

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *BaseContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *BaseContext) Notify(srv string) {
	c.effects.Notify(srv)
}

func (c *MessageContext) AddSuspicion(delta int, reason string) {
	c.effects.AddSuspicion(delta, reason)
}

func (c *MessageContext) AddFlag(val string) {
	c.effects.AddFlag(val)
}
