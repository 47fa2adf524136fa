package profile

// Read-only snapshot of a profile, as reported to administrators.
type Summary struct {
	Tenant         string         `json:"tenant"`
	User           string         `json:"user"`
	Score          int            `json:"score"`
	RecentMessages int            `json:"recentMessages"`
	MentionCount   int            `json:"mentionCount"`
	LinkCount      int            `json:"linkCount"`
	State          string         `json:"state"`
	Muted          bool           `json:"muted"`
	Shadowbanned   bool           `json:"shadowbanned"`
	History        []HistoryEntry `json:"history"`
	Flags          []string       `json:"flags,omitempty"`
}

// number of history entries included in a summary
var SummaryHistoryLen = 5

// Caller holds the lock.
func (p *Profile) Summary() Summary {
	start := len(p.History) - SummaryHistoryLen
	if start < 0 {
		start = 0
	}
	hist := make([]HistoryEntry, len(p.History)-start)
	copy(hist, p.History[start:])
	return Summary{
		Tenant:         p.Key.Tenant,
		User:           p.Key.User,
		Score:          p.Score,
		RecentMessages: len(p.MessageTimes),
		MentionCount:   p.MentionCount,
		LinkCount:      p.LinkCount,
		State:          p.State.String(),
		Muted:          p.State == Muted,
		Shadowbanned:   p.State == Shadowbanned,
		History:        hist,
	}
}
