package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// Failure of a single outbound platform command.
type CommandError struct {
	Op     string
	Tenant string
	// channel, member, or role the command was addressed to
	Target string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Tenant, e.Target, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Outcome of a batch of platform commands (a sweep, an escalation, or an administrative command). Failures never abort the batch; they are collected here.
type Report struct {
	Attempted int
	Succeeded int
	Failures  []*CommandError
}

// Records the outcome of one command, and returns err unchanged.
func (r *Report) Record(op, tenant, target string, err error) error {
	r.Attempted++
	platformCommandCount.WithLabelValues(op, commandStatus(err)).Inc()
	if err != nil {
		r.Failures = append(r.Failures, &CommandError{Op: op, Tenant: tenant, Target: target, Err: err})
		return err
	}
	r.Succeeded++
	return nil
}

func (r *Report) Merge(other Report) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}

func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Joined errors of all failures, or nil.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Logs each failure at WARN, and a summary at the given level when anything was attempted.
func (r Report) Log(logger *slog.Logger, msg string) {
	for _, f := range r.Failures {
		logger.Warn("platform command failed", "op", f.Op, "tenant", f.Tenant, "target", f.Target, "err", f.Err)
	}
	if r.Attempted == 0 {
		return
	}
	logger.Info(msg, "attempted", r.Attempted, "succeeded", r.Succeeded, "failed", len(r.Failures))
}

func commandStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
