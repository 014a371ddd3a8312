package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/metrics"
)

// Snapshot holds every aggregate of one report run. MostIncidents is null
// when there are no incidents; empty lists encode as [].
type Snapshot struct {
	GeneratedAt     time.Time                 `json:"generated_at"`
	Counts          []metrics.ServiceCount    `json:"counts"`
	AvgResponse     []metrics.ServiceAverage  `json:"avg_response"`
	Uptime          []metrics.ServiceUptime   `json:"uptime"`
	Slowest         []metrics.ServiceMax      `json:"slowest"`
	Hourly          []metrics.HourlyBucket    `json:"hourly"`
	Downtime        []metrics.DowntimeWindow  `json:"downtime"`
	ActiveIncidents []domain.Incident         `json:"active_incidents"`
	IncidentLength  []metrics.ServiceDuration `json:"avg_incident_duration"`
	MostIncidents   *metrics.ServiceIncidents `json:"most_incidents"`
}

// Collect runs the aggregate queries in catalog order.
func (r *Reporter) Collect(ctx context.Context) (*Snapshot, error) {
	e := r.engine
	snap := &Snapshot{GeneratedAt: e.Now()}
	steps := []struct {
		key string
		run func() error
	}{
		{"counts", func() (err error) { snap.Counts, err = e.CountPerService(ctx, r.opts.Services...); return }},
		{"avg", func() (err error) { snap.AvgResponse, err = e.AverageResponseTimeSince(ctx, r.opts.AvgWindow); return }},
		{"uptime", func() (err error) { snap.Uptime, err = e.UptimePercentage(ctx); return }},
		{"slowest", func() (err error) { snap.Slowest, err = e.SlowestResponsePerService(ctx); return }},
		{"hourly", func() (err error) { snap.Hourly, err = e.HourlyTrend(ctx); return }},
		{"downtime", func() (err error) { snap.Downtime, err = e.SimultaneousDowntime(ctx, r.opts.MinServices); return }},
		{"active", func() (err error) { snap.ActiveIncidents, err = e.ActiveIncidents(ctx); return }},
		{"duration", func() (err error) { snap.IncidentLength, err = e.AverageIncidentDuration(ctx); return }},
		{"most", func() (err error) { snap.MostIncidents, err = e.MostIncidentsService(ctx); return }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			r.log.Error("report_aborted", zap.String("section", s.key), zap.Error(err))
			return nil, fmt.Errorf("section %s: %w", s.key, err)
		}
	}
	return snap, nil
}

// WriteJSON collects a snapshot and writes it as indented JSON.
func (r *Reporter) WriteJSON(ctx context.Context, w io.Writer) error {
	snap, err := r.Collect(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
