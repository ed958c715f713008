// Package health exposes a JSON health endpoint covering the database and
// external provider configuration.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// Status of a component or of the whole system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration"`
}

// Checker runs one component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// DBChecker pings the database connection pool.
type DBChecker struct {
	DB *sql.DB
}

func (c DBChecker) Name() string { return "database" }

func (c DBChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()
	h := ComponentHealth{Name: c.Name(), LastChecked: start}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.DB.PingContext(pingCtx); err != nil {
		h.Status = StatusUnhealthy
		h.Message = err.Error()
	} else {
		h.Status = StatusHealthy
	}
	h.Duration = time.Since(start)
	return h
}

// ProviderChecker reports whether an external provider credential is present.
// A missing key degrades the system (fallbacks still work) rather than
// failing it.
type ProviderChecker struct {
	Provider string
	APIKey   string
}

func (c ProviderChecker) Name() string { return c.Provider }

func (c ProviderChecker) Check(_ context.Context) ComponentHealth {
	h := ComponentHealth{Name: c.Provider, LastChecked: time.Now()}
	if c.APIKey == "" {
		h.Status = StatusDegraded
		h.Message = "api key not configured"
	} else {
		h.Status = StatusHealthy
	}
	return h
}

type systemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// Handler runs all checkers and writes a JSON summary. Overall status is the
// worst component status; only an unhealthy component yields HTTP 503.
func Handler(checkers ...Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall := StatusHealthy
		components := make(map[string]ComponentHealth, len(checkers))
		for _, c := range checkers {
			h := c.Check(r.Context())
			components[c.Name()] = h
			switch h.Status {
			case StatusUnhealthy:
				overall = StatusUnhealthy
			case StatusDegraded:
				if overall == StatusHealthy {
					overall = StatusDegraded
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(systemHealth{
			Status:     overall,
			Timestamp:  time.Now().UTC(),
			Components: components,
		})
	}
}
