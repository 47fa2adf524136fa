package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/phantomguard/warden/automod/cachestore"
	"github.com/phantomguard/warden/automod/countstore"
	"github.com/phantomguard/warden/automod/flagstore"
	"github.com/phantomguard/warden/automod/platform"
	"github.com/phantomguard/warden/automod/profile"
	"github.com/phantomguard/warden/automod/setstore"
)

var _ MessageRuleFunc = simpleRule

// scores messages containing the word "spam", and messages with many mentions
func simpleRule(c *MessageContext) error {
	if strings.Contains(strings.ToLower(c.Message.Content), "spam") {
		c.AddSuspicion(40, "contains spam")
	}
	if len(c.Message.Mentions) >= c.Config().MentionLimit {
		c.AddSuspicion(40, "mass mention")
	}
	return nil
}

// Reference time used by the test fixture clock
var FixtureTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Engine with in-memory stores, a MockPlatform with one tenant ("tenant-1", channels "general" and "random"), and a fixed clock.
func EngineTestFixture() (*Engine, *platform.MockPlatform) {
	rules := RuleSet{
		MessageRules: []MessageRuleFunc{
			simpleRule,
		},
	}
	mock := platform.NewMockPlatform()
	mock.AddTenant("tenant-1", "general", "random")
	sets := setstore.NewMemSetStore()
	sets.Put("suspect-tokens", []string{"nitro", "airdrop"})
	engine := Engine{
		Logger:   slog.Default(),
		Config:   DefaultConfig(),
		Platform: mock,
		Rules:    rules,
		Profiles: profile.NewStore(),
		Tenants:  NewTenantRegistry(),
		Counters: countstore.NewMemCountStore(),
		Sets:     sets,
		Flags:    flagstore.NewMemFlagStore(),
		Cache:    cachestore.NewMemCacheStore(100, time.Hour),
		Clock: func() time.Time {
			return FixtureTime
		},
	}
	return &engine, mock
}

// Helper to access the private effects field from a context. Intended for use in test code, *not* from rules.
func ExtractEffects(c *BaseContext) Effects {
	return *c.effects
}
