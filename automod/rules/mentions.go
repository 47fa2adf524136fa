package rules

import (
	"fmt"

	"github.com/phantomguard/warden/automod"
)

var _ automod.MessageRuleFunc = MassMentionRule

var massMentionScore = 40

// MassMentionRule scores messages which mention many members at once. Every mention also feeds a distinct-target counter, for statistics.
func MassMentionRule(c *automod.MessageContext) error {
	if len(c.Message.Mentions) == 0 {
		return nil
	}
	bucket := c.Message.Tenant + "/" + c.Message.User
	for _, m := range c.Message.Mentions {
		c.IncrementDistinct("mentions", bucket, m)
	}

	if len(c.Message.Mentions) < c.Config().MentionLimit {
		return nil
	}
	c.AddSuspicion(massMentionScore, fmt.Sprintf("%d mentions", len(c.Message.Mentions)))
	c.AddFlag(automod.FlagMassMention)
	return nil
}
