// Package health aggregates liveness checks for the service's moving
// parts. Checks are evaluated on demand when the gateway's health endpoint
// is hit, so the report always reflects the current state rather than a
// cached snapshot.
package health

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"
)

// Status values for a check result
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status is one check's result. Messages are sanitized before they reach
// the endpoint so connection strings and credentials never leak.
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthy builds a healthy status
func Healthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Degraded builds a degraded status
func Degraded(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Unhealthy builds an unhealthy status
func Unhealthy(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Check evaluates one component's current health
type Check func(ctx context.Context) Status

// Report is the aggregate the health endpoint serves
type Report struct {
	Healthy    bool     `json:"healthy"`
	Status     string   `json:"status"`
	Components []Status `json:"components,omitempty"`
}

// Monitor holds the registered checks
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{checks: make(map[string]Check)}
}

// Register adds or replaces a named check
func (m *Monitor) Register(name string, check Check) {
	if check == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Deregister removes a named check
func (m *Monitor) Deregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, name)
}

// Report runs every check and aggregates the results: any unhealthy
// component makes the whole report unhealthy, otherwise any degraded
// component makes it degraded. A monitor with no checks reports healthy.
func (m *Monitor) Report(ctx context.Context) Report {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, m.checks[name])
	}
	m.mu.RUnlock()

	report := Report{Healthy: true, Status: StatusHealthy}
	for i, check := range checks {
		status := check(ctx)
		if status.Component == "" {
			status.Component = names[i]
		}
		status.Message = Sanitize(status.Message)

		switch status.Status {
		case StatusUnhealthy:
			report.Healthy = false
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status != StatusUnhealthy {
				report.Healthy = false
				report.Status = StatusDegraded
			}
		}
		report.Components = append(report.Components, status)
	}
	return report
}

var (
	urlPattern        = regexp.MustCompile(`(?:https?|wss?|nats)://[^\s]+`)
	ipPattern         = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	credentialPattern = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Sanitize strips endpoints and credentials from a message so it is safe
// to serve on an unauthenticated endpoint.
func Sanitize(message string) string {
	message = urlPattern.ReplaceAllString(message, "[URL]")
	message = ipPattern.ReplaceAllString(message, "[IP]")
	message = credentialPattern.ReplaceAllString(message, "$1=[REDACTED]")
	return message
}
