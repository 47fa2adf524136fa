package main

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var adminCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_admin_api_commands",
	Help: "Number of administrative commands received over the HTTP API",
}, []string{"command"})

var adminAuthFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_admin_api_auth_failures",
	Help: "Number of admin API requests rejected for a missing or invalid token",
})

// request metrics for the admin API; registered once, shared by every echo instance
var apiMetrics = echoprometheus.NewMiddleware("warden")
