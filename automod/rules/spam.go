package rules

import (
	"fmt"

	"github.com/phantomguard/warden/automod"
)

var _ automod.MessageRuleFunc = SpamBurstRule

var spamBurstScore = 30

// SpamBurstRule scores members who post more than the configured number of messages inside the spam window.
func SpamBurstRule(c *automod.MessageContext) error {
	cfg := c.Config()
	if c.Profile.RecentMessages <= cfg.SpamMessageLimit {
		return nil
	}
	c.AddSuspicion(spamBurstScore, fmt.Sprintf("%d messages in %s", c.Profile.RecentMessages, cfg.SpamWindow))
	c.AddFlag(automod.FlagSpamBurst)
	return nil
}
