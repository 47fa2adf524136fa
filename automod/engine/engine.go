package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phantomguard/warden/automod/cachestore"
	"github.com/phantomguard/warden/automod/countstore"
	"github.com/phantomguard/warden/automod/flagstore"
	"github.com/phantomguard/warden/automod/keyword"
	"github.com/phantomguard/warden/automod/platform"
	"github.com/phantomguard/warden/automod/profile"
	"github.com/phantomguard/warden/automod/setstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("automod")

// runtime for executing rules, managing member and tenant state, and issuing enforcement commands to the platform.
//
// careful when initializing: several fields should not be nil, even though they are pointer or interface types. See EngineTestFixture for a complete example.
type Engine struct {
	Logger   *slog.Logger
	Config   Config
	Platform platform.Platform
	Rules    RuleSet
	Profiles *profile.Store
	Tenants  *TenantRegistry
	Counters countstore.CountStore
	Sets     setstore.SetStore
	Cache    cachestore.CacheStore
	Flags    flagstore.FlagStore
	// optional; used for out-of-band alerts on lockdown and escalation
	Notifier Notifier
	// optional; defaults to time.Now
	Clock func() time.Time

	roleFlight singleflight.Group
}

// Inbound chat message, as delivered by the gateway consumer.
type MessageEvent struct {
	Tenant    string
	User      string
	UserName  string
	Channel   string
	MessageID string
	Content   string
	Mentions  []string
	Time      time.Time
}

var (
	// message passed all checks; commands in it may be dispatched
	VerdictAllow = "allow"
	// author was muted by this message
	VerdictMuted = "muted"
	// author was shadowbanned by this message
	VerdictShadowbanned = "shadowbanned"
	// author is shadowbanned; message was removed and forwarded to the audit channel
	VerdictFiltered = "filtered"
)

// Outcome of processing a single message.
type Verdict struct {
	Action string
	// whether the consumer may dispatch commands contained in the message
	Dispatch bool
	Score    int
	Delta    int
	// failures of any platform commands issued while handling this message
	Report Report
}

func (eng *Engine) now() time.Time {
	if eng.Clock != nil {
		return eng.Clock()
	}
	return time.Now()
}

// Runs the scoring rules against a message, then applies escalation or shadowban filtering as needed.
//
// A non-nil error indicates rule execution or effect persistence failed. Platform command failures do not cause an error; they are collected in the returned Verdict's Report.
func (eng *Engine) ProcessMessage(ctx context.Context, evt MessageEvent) (verdict Verdict, err error) {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "tenant", evt.Tenant, "user", evt.User)
			eventErrorCount.WithLabelValues("message").Inc()
			verdict = Verdict{Action: VerdictAllow, Dispatch: false}
			err = fmt.Errorf("rule execution panic: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("tenant", evt.Tenant), attribute.String("user", evt.User))

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	if evt.Time.IsZero() {
		evt.Time = eng.now()
	}

	p := eng.Profiles.GetOrCreate(profile.Key{Tenant: evt.Tenant, User: evt.User})

	p.Lock()
	p.RecordMessage(evt.Time, len(evt.Mentions), keyword.ContainsLink(evt.Content))
	view := ProfileView{
		RecentMessages: p.RecentMessages(evt.Time, eng.Config.SpamWindow),
		MentionCount:   p.MentionCount,
		LinkCount:      p.LinkCount,
		Score:          p.Score,
		State:          p.State,
	}
	p.Unlock()

	c := NewMessageContext(ctx, eng, evt, view)
	if err := eng.Rules.CallMessageRules(&c); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return Verdict{}, err
	}
	if c.Err != nil {
		c.Logger.Warn("rule execution error", "err", c.Err)
	}

	delta := c.effects.SuspicionDelta()

	p.Lock()
	score := p.AddScore(delta)
	p.Log(evt.Time, profile.ActionMessage, fmt.Sprintf("suspicion +%d (score %d)", delta, score))
	prior, next := eng.claimEscalation(p, evt.Time)
	p.Unlock()

	verdict = Verdict{Action: VerdictAllow, Dispatch: true, Score: score, Delta: delta}
	switch {
	case prior == profile.Shadowbanned:
		verdict.Action = VerdictFiltered
		verdict.Dispatch = false
		verdict.Report = eng.filterShadowbanned(ctx, evt)
	case next != prior && next == profile.Muted:
		verdict.Action = VerdictMuted
		verdict.Dispatch = false
		verdict.Report = eng.applyMute(ctx, evt.Tenant, evt.User)
		c.AddFlag(FlagAutoMuted)
		c.Increment("mute", evt.Tenant)
		c.Notify("slack")
	case next != prior && next == profile.Shadowbanned:
		verdict.Action = VerdictShadowbanned
		verdict.Dispatch = false
		verdict.Report = eng.applyShadowban(ctx, evt.Tenant, evt.User)
		c.AddFlag(FlagAutoShadowbanned)
		c.Increment("shadowban", evt.Tenant)
		c.Notify("slack")
	}
	c.Increment("message", evt.Tenant)

	eng.CanonicalLogLineMessage(&c, verdict)
	if err := eng.persistMessageEffects(&c, verdict); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return verdict, err
	}
	return verdict, nil
}

// Records a member join for the raid detector. Joins are only evaluated by SweepJoins.
func (eng *Engine) ProcessJoin(ctx context.Context, tenant, user string, ts time.Time) error {
	if ts.IsZero() {
		ts = eng.now()
	}
	eventProcessCount.WithLabelValues("join").Inc()
	eng.Tenants.GetOrCreate(tenant).AddJoin(user, ts)
	if err := eng.Counters.Increment(ctx, "join", tenant); err != nil {
		return fmt.Errorf("incrementing join counter: %w", err)
	}
	eng.Logger.Debug("member joined", "tenant", tenant, "user", user)
	return nil
}

func (eng *Engine) GetCount(ctx context.Context, name, val, period string) (int, error) {
	return eng.Counters.GetCount(ctx, name, val, period)
}
