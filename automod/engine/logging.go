package engine

// Emits a single structured log line summarizing the processing of a message.
func (eng *Engine) CanonicalLogLineMessage(c *MessageContext, v Verdict) {
	c.Logger.Info("canonical-event-line",
		"messageID", c.Message.MessageID,
		"action", v.Action,
		"dispatch", v.Dispatch,
		"delta", v.Delta,
		"score", v.Score,
		"recentMessages", c.Profile.RecentMessages,
		"flags", c.effects.Flags,
		"counterIncrements", len(c.effects.CounterIncrements),
		"commandFailures", len(v.Report.Failures),
	)
}
