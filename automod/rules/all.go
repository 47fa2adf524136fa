package rules

import (
	"github.com/phantomguard/warden/automod"
)

func DefaultRules() automod.RuleSet {
	rules := automod.RuleSet{
		MessageRules: []automod.MessageRuleFunc{
			SpamBurstRule,
			MassMentionRule,
			SuspectTokenRule,
		},
	}
	return rules
}
