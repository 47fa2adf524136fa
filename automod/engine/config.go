package engine

import (
	"fmt"
	"time"

	"github.com/phantomguard/warden/automod/platform"
)

// Thresholds, intervals, and names which control engine behavior.
type Config struct {
	// joins within JoinWindow which trigger a lockdown
	JoinThreshold int
	JoinWindow    time.Duration
	// messages within SpamWindow above which a member is considered to be bursting
	SpamMessageLimit int
	SpamWindow       time.Duration
	// mentions in a single message which count as a mass mention
	MentionLimit int
	// suspicion score at or above which members are escalated
	SuspicionLimit int

	RaidSweepInterval time.Duration
	RoleSweepInterval time.Duration

	MutedRoleName     string
	ShadowbanRoleName string
	// name of the channel which receives shadowbanned message content
	AuditChannel string
}

func DefaultConfig() Config {
	return Config{
		JoinThreshold:     5,
		JoinWindow:        15 * time.Second,
		SpamMessageLimit:  5,
		SpamWindow:        10 * time.Second,
		MentionLimit:      5,
		SuspicionLimit:    70,
		RaidSweepInterval: 10 * time.Second,
		RoleSweepInterval: 5 * time.Minute,
		MutedRoleName:     "Muted",
		ShadowbanRoleName: "ShadowBanned",
		AuditChannel:      "phantomguard-logs",
	}
}

// Checks that windows and intervals are positive and thresholds are usable.
func (c Config) Validate() error {
	durations := []struct {
		name string
		val  time.Duration
	}{
		{"join window", c.JoinWindow},
		{"spam window", c.SpamWindow},
		{"raid sweep interval", c.RaidSweepInterval},
		{"role sweep interval", c.RoleSweepInterval},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive: %s", d.name, d.val)
		}
	}
	if c.JoinThreshold < 1 || c.SpamMessageLimit < 1 || c.MentionLimit < 1 {
		return fmt.Errorf("join threshold, spam message limit, and mention limit must be at least 1")
	}
	if c.SuspicionLimit < 1 || c.SuspicionLimit > 100 {
		return fmt.Errorf("suspicion limit must be between 1 and 100: %d", c.SuspicionLimit)
	}
	if c.MutedRoleName == "" || c.ShadowbanRoleName == "" {
		return fmt.Errorf("enforcement role names must be set")
	}
	return nil
}

// Permissions revoked on every channel for members wearing an enforcement role.
const EnforcementDeny = platform.PermSend | platform.PermSpeak | platform.PermReact

// Permissions revoked for the everyone role during a lockdown.
const LockdownDeny = platform.PermSend | platform.PermSpeak

// Enforcement role which the engine creates and maintains in every tenant.
type RoleSpec struct {
	Name string
	// tenant-wide permissions of the role itself
	Perms platform.Permission
	// channel-level deny overwrite mirrored onto every channel
	Deny platform.Permission
}

func (c Config) EnforcementRoles() []RoleSpec {
	return []RoleSpec{
		{Name: c.MutedRoleName, Deny: EnforcementDeny},
		{Name: c.ShadowbanRoleName, Deny: EnforcementDeny},
	}
}
