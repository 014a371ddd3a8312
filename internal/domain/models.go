package domain

import "time"

// HealthCheck is one probe observation. ResponseTimeMS is nil when the
// probe failed before a response arrived.
type HealthCheck struct {
	ID             int64     `json:"id,omitempty"`
	Service        string    `json:"service"`
	URL            string    `json:"url,omitempty"`
	StatusCode     *int      `json:"status_code"`
	ResponseTimeMS *float64  `json:"response_time_ms"`
	IsHealthy      bool      `json:"is_healthy"`
	Timestamp      time.Time `json:"timestamp"`
	Error          *string   `json:"error"`
}

type IncidentStatus string

const (
	IncidentActive   IncidentStatus = "active"
	IncidentResolved IncidentStatus = "resolved"
)

type Incident struct {
	ID         int64          `json:"id,omitempty"`
	Service    string         `json:"service"`
	Type       string         `json:"type,omitempty"`
	Status     IncidentStatus `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	ResolvedAt *time.Time     `json:"resolved_at"`
}
