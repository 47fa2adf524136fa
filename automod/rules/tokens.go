package rules

import (
	"fmt"

	"github.com/phantomguard/warden/automod"
	"github.com/phantomguard/warden/automod/keyword"
)

var _ automod.MessageRuleFunc = SuspectTokenRule

var suspectTokenScore = 40

// name of the set holding suspect tokens (eg, "nitro", "airdrop")
var SuspectTokenSet = "suspect-tokens"

// SuspectTokenRule scores messages containing any suspect token, as a case-insensitive substring. Falls back to the built-in token list when the set is empty.
func SuspectTokenRule(c *automod.MessageContext) error {
	tokens := c.SetMembers(SuspectTokenSet)
	if len(tokens) == 0 {
		tokens = keyword.DefaultSuspectTokens
	}
	tok := keyword.ContainsAnyToken(c.Message.Content, tokens)
	if tok == "" {
		return nil
	}
	c.AddSuspicion(suspectTokenScore, fmt.Sprintf("suspect token %q", tok))
	c.AddFlag(automod.FlagSuspectToken)
	return nil
}
