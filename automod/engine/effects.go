package engine

var (
	FlagAutoMuted        = "auto-muted"
	FlagAutoShadowbanned = "auto-shadowbanned"
	FlagRaidJoin         = "raid-join"
	FlagSpamBurst        = "spam-burst"
	FlagMassMention      = "mass-mention"
	FlagSuspectToken     = "suspect-token"
)

type CounterRef struct {
	Name string
	Val  string
}

type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

// Single contribution to a message's suspicion delta.
type Suspicion struct {
	Delta  int
	Reason string
}

// Mutable container for all the possible side-effects from rule execution.
//
// Effects are collected during rule execution and persisted in bulk at the end of processing, after the escalation decision has been made.
type Effects struct {
	// List of counters which should be incremented as part of processing this event.
	CounterIncrements []CounterRef
	// Similar to "CounterIncrements", but for "distinct" style counters
	CounterDistinctIncrements []CounterDistinctRef
	// Suspicion contributions from individual rules. Summed and applied once.
	Suspicions []Suspicion
	// Moderation flags (private) which should be recorded for the member (in the Engine's flagstore).
	Flags []string
	// Services to notify at the end of processing (eg, "slack")
	NotifyServices []string
}

// Enqueues the named counter to be incremented at the end of all rule processing. Will automatically increment for all time periods.
//
// "name" is the counter namespace.
// "val" is the specific counter with that namespace.
func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

// Enqueues the named "distinct value" counter based on the supplied string value ("val") to be incremented at the end of all rule processing.
func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

func (e *Effects) AddSuspicion(delta int, reason string) {
	e.Suspicions = append(e.Suspicions, Suspicion{Delta: delta, Reason: reason})
}

// Sum of all suspicion contributions. Order of contributions does not matter.
func (e *Effects) SuspicionDelta() int {
	total := 0
	for _, s := range e.Suspicions {
		total += s.Delta
	}
	return total
}

// Enqueues the provided flag (string value) to be recorded (in the Engine's flagstore) at the end of rule processing.
func (e *Effects) AddFlag(val string) {
	e.Flags = append(e.Flags, val)
}

func (e *Effects) Notify(srv string) {
	e.NotifyServices = append(e.NotifyServices, srv)
}
