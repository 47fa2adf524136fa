package engine

type MessageRuleFunc = func(c *MessageContext) error

// Holds configuration of which rules should be run, and helps dispatch events to those rules.
type RuleSet struct {
	MessageRules []MessageRuleFunc
}

// Executes all message rules. Only dispatches execution, does no other de-dupe or pre/post processing.
func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	for _, f := range r.MessageRules {
		err := f(c)
		if err != nil {
			return err
		}
	}
	return nil
}
