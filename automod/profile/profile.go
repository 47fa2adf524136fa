// Per-member behavioral state: message cadence, mention and link counters, suspicion score, escalation state, and a bounded action history.
//
// Profiles are created lazily on the first observed message and live for the lifetime of the process. Nothing here is persisted.
package profile

import (
	"sync"
	"time"
)

const (
	// number of recent message timestamps retained per profile
	MessageTimesCapacity = 50
	// number of history entries retained per profile
	HistoryCapacity = 100

	MaxScore = 100
	MinScore = 0
)

// Escalation state of a profile. Transitions only move forward, except for administrative reset.
type State int

const (
	Clean State = iota
	Muted
	Shadowbanned
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Muted:
		return "muted"
	case Shadowbanned:
		return "shadowbanned"
	default:
		return "unknown"
	}
}

var (
	ActionMessage   = "MESSAGE"
	ActionMute      = "MUTE"
	ActionShadowban = "SHADOWBAN"
	ActionReset     = "RESET"
	ActionResetMute = "RESET-MUTE"
)

type HistoryEntry struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
}

// Identifies a profile: one per member per tenant.
type Key struct {
	Tenant string
	User   string
}

// Mutable record for a single member. All methods that read or write fields must hold the lock; see Lock/Unlock.
//
// Exported fields are only safe to access directly while the lock is held.
type Profile struct {
	mu sync.Mutex

	Key          Key
	MessageTimes []time.Time
	MentionCount int
	LinkCount    int
	Score        int
	State        State
	History      []HistoryEntry
}

func New(key Key) *Profile {
	return &Profile{
		Key:          key,
		MessageTimes: []time.Time{},
		History:      []HistoryEntry{},
	}
}

func (p *Profile) Lock() {
	p.mu.Lock()
}

func (p *Profile) Unlock() {
	p.mu.Unlock()
}

// Appends a message timestamp, evicting the oldest past capacity. Caller holds the lock.
func (p *Profile) RecordMessage(ts time.Time, mentions int, hasLink bool) {
	p.MessageTimes = append(p.MessageTimes, ts)
	if len(p.MessageTimes) > MessageTimesCapacity {
		p.MessageTimes = p.MessageTimes[len(p.MessageTimes)-MessageTimesCapacity:]
	}
	p.MentionCount += mentions
	if hasLink {
		p.LinkCount++
	}
}

// Number of retained message timestamps strictly newer than `window` before `now`. Caller holds the lock.
func (p *Profile) RecentMessages(now time.Time, window time.Duration) int {
	n := 0
	for _, t := range p.MessageTimes {
		if now.Sub(t) < window {
			n++
		}
	}
	return n
}

// Adds delta to the score, clamped to [MinScore, MaxScore], and returns the new score. Caller holds the lock.
func (p *Profile) AddScore(delta int) int {
	p.Score = clamp(p.Score+delta, MinScore, MaxScore)
	return p.Score
}

// Appends an audit entry, evicting the oldest past capacity. Caller holds the lock.
func (p *Profile) Log(ts time.Time, action, detail string) {
	p.History = append(p.History, HistoryEntry{Time: ts, Action: action, Detail: detail})
	if len(p.History) > HistoryCapacity {
		p.History = p.History[len(p.History)-HistoryCapacity:]
	}
}

// Clears the message window and suspicion score; lifetime counters and escalation state are kept. Caller holds the lock.
func (p *Profile) ResetSpam(ts time.Time) {
	p.MessageTimes = []time.Time{}
	p.Score = 0
	p.Log(ts, ActionReset, "spam cache and suspicion reset")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
