package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var actionNewFlagCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_new_action_flags",
	Help: "Number of new flags persisted",
}, []string{"val"})

var actionEscalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_new_action_escalations",
	Help: "Number of members escalated, by new state",
}, []string{"state"})

var shadowbanFilteredCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_shadowban_filtered",
	Help: "Number of messages removed from shadowbanned members",
})

var lockdownCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_lockdowns",
	Help: "Number of tenant lockdowns triggered",
})

var rolesCreatedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_roles_created",
	Help: "Number of enforcement roles (re)created",
}, []string{"role"})

var platformCommandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_platform_commands",
	Help: "Number of outbound platform commands, by operation and status",
}, []string{"op", "status"})

var sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_sweep_duration_sec",
	Help: "Duration of periodic sweeps",
}, []string{"sweep"})
