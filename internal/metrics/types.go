package metrics

type ServiceCount struct {
	Service string `json:"service"`
	Checks  int64  `json:"checks"`
}

type ServiceAverage struct {
	Service       string  `json:"service"`
	AvgResponseMS float64 `json:"avg_response_ms"`
}

type ServiceUptime struct {
	Service       string  `json:"service"`
	UptimePct     float64 `json:"uptime_pct"`
	TotalChecks   int64   `json:"total_checks"`
	HealthyChecks int64   `json:"healthy_checks"`
}

type ServiceMax struct {
	Service       string  `json:"service"`
	MaxResponseMS float64 `json:"max_response_ms"`
}

// HourlyBucket aggregates one service's checks within one UTC hour of day.
// AvgResponseMS is nil when no check in the bucket recorded a latency.
type HourlyBucket struct {
	Service       string   `json:"service"`
	Hour          int      `json:"hour"`
	AvgResponseMS *float64 `json:"avg_response_ms"`
	TotalChecks   int64    `json:"total_checks"`
	Failures      int64    `json:"failures"`
}

// DowntimeWindow is a UTC minute in which several services failed checks.
type DowntimeWindow struct {
	Minute       string   `json:"minute"`
	ServicesDown []string `json:"services_down"`
	Count        int64    `json:"count"`
}

type ServiceIncidents struct {
	Service       string `json:"service"`
	IncidentCount int64  `json:"incident_count"`
}

type ServiceDuration struct {
	Service        string  `json:"service"`
	AvgDurationMin float64 `json:"avg_duration_min"`
}
