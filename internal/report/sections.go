package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hamed0406/healthreport/internal/domain"
)

const (
	noActiveIncidents   = "No active incidents."
	noIncidents         = "No incidents found."
	noResolvedIncidents = "No resolved incidents found."
	noDowntime          = "No simultaneous downtime found."
	noChecks            = "No checks found."
	noServices          = "No services configured."
)

var catalog = []Section{
	{Key: "checks", Title: "Checks for focus service", run: (*Reporter).checksForService},
	{Key: "unhealthy", Title: "Unhealthy checks", run: (*Reporter).unhealthy},
	{Key: "range", Title: "Checks in last window", run: (*Reporter).checksInRange},
	{Key: "counts", Title: "Count per service", run: (*Reporter).counts},
	{Key: "avg", Title: "Avg response time", run: (*Reporter).average},
	{Key: "uptime", Title: "Uptime percentage", run: (*Reporter).uptime},
	{Key: "slowest", Title: "Slowest response", run: (*Reporter).slowest},
	{Key: "hourly", Title: "Hourly trends (UTC)", run: (*Reporter).hourly},
	{Key: "downtime", Title: "Simultaneous downtime", run: (*Reporter).downtime},
	{Key: "active", Title: "Active incidents", run: (*Reporter).active},
	{Key: "duration", Title: "Avg incident duration", run: (*Reporter).duration},
	{Key: "most", Title: "Most incidents", run: (*Reporter).most},
}

func (r *Reporter) checksForService(ctx context.Context, w io.Writer) error {
	svc := r.focus()
	if svc == "" {
		fmt.Fprintln(w, noServices)
		return nil
	}
	checks, err := r.engine.ChecksForService(ctx, svc)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s checks\n", svc, humanize.Comma(int64(len(checks))))
	r.writeChecks(w, checks)
	return nil
}

func (r *Reporter) unhealthy(ctx context.Context, w io.Writer) error {
	checks, err := r.engine.UnhealthyChecks(ctx)
	if err != nil {
		return err
	}
	r.writeChecks(w, checks)
	return nil
}

func (r *Reporter) checksInRange(ctx context.Context, w io.Writer) error {
	end := r.engine.Now()
	start := end.Add(-r.opts.RangeWindow)
	checks, err := r.engine.ChecksInRange(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s .. %s\n", start.Format(timeLayout), end.Format(timeLayout))
	r.writeChecks(w, checks)
	return nil
}

func (r *Reporter) counts(ctx context.Context, w io.Writer) error {
	counts, err := r.engine.CountPerService(ctx, r.opts.Services...)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintln(w, noServices)
		return nil
	}
	for _, c := range counts {
		fmt.Fprintf(w, "%s: %s checks\n", c.Service, humanize.Comma(c.Checks))
	}
	return nil
}

func (r *Reporter) average(ctx context.Context, w io.Writer) error {
	avgs, err := r.engine.AverageResponseTimeSince(ctx, r.opts.AvgWindow)
	if err != nil {
		return err
	}
	if len(avgs) == 0 {
		fmt.Fprintln(w, noChecks)
	}
	for _, a := range avgs {
		fmt.Fprintf(w, "%s: %sms avg\n", a.Service, humanize.FormatFloat("#,###.##", a.AvgResponseMS))
	}
	return nil
}

func (r *Reporter) uptime(ctx context.Context, w io.Writer) error {
	ups, err := r.engine.UptimePercentage(ctx)
	if err != nil {
		return err
	}
	if len(ups) == 0 {
		fmt.Fprintln(w, noChecks)
	}
	for _, u := range ups {
		fmt.Fprintf(w, "%s: %.2f%% uptime (%s/%s)\n", u.Service, u.UptimePct,
			humanize.Comma(u.HealthyChecks), humanize.Comma(u.TotalChecks))
	}
	return nil
}

func (r *Reporter) slowest(ctx context.Context, w io.Writer) error {
	maxes, err := r.engine.SlowestResponsePerService(ctx)
	if err != nil {
		return err
	}
	if len(maxes) == 0 {
		fmt.Fprintln(w, noChecks)
	}
	for _, m := range maxes {
		fmt.Fprintf(w, "%s: %sms max\n", m.Service, humanize.FormatFloat("#,###.##", m.MaxResponseMS))
	}
	return nil
}

func (r *Reporter) hourly(ctx context.Context, w io.Writer) error {
	buckets, err := r.engine.HourlyTrend(ctx)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		fmt.Fprintln(w, noChecks)
	}
	for _, b := range buckets {
		avg := "n/a"
		if b.AvgResponseMS != nil {
			avg = humanize.FormatFloat("#,###.##", *b.AvgResponseMS) + "ms"
		}
		fmt.Fprintf(w, "%02d:00 %s: avg %s, %s checks, %s failures\n", b.Hour, b.Service, avg,
			humanize.Comma(b.TotalChecks), humanize.Comma(b.Failures))
	}
	return nil
}

func (r *Reporter) downtime(ctx context.Context, w io.Writer) error {
	windows, err := r.engine.SimultaneousDowntime(ctx, r.opts.MinServices)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		fmt.Fprintln(w, noDowntime)
	}
	for _, d := range windows {
		fmt.Fprintf(w, "%s: %s down\n", d.Minute, strings.Join(d.ServicesDown, ", "))
	}
	return nil
}

func (r *Reporter) active(ctx context.Context, w io.Writer) error {
	incidents, err := r.engine.ActiveIncidents(ctx)
	if err != nil {
		return err
	}
	if len(incidents) == 0 {
		fmt.Fprintln(w, noActiveIncidents)
		return nil
	}
	now := r.engine.Now()
	for _, i := range incidents {
		fmt.Fprintf(w, "#%d %s %s since %s (%s)\n", i.ID, i.Service, i.Type,
			i.StartedAt.Format(timeLayout), humanize.RelTime(i.StartedAt, now, "ago", "from now"))
	}
	return nil
}

func (r *Reporter) duration(ctx context.Context, w io.Writer) error {
	durations, err := r.engine.AverageIncidentDuration(ctx)
	if err != nil {
		return err
	}
	if len(durations) == 0 {
		fmt.Fprintln(w, noResolvedIncidents)
	}
	for _, d := range durations {
		fmt.Fprintf(w, "%s: avg %.2f min per incident\n", d.Service, d.AvgDurationMin)
	}
	return nil
}

func (r *Reporter) most(ctx context.Context, w io.Writer) error {
	top, err := r.engine.MostIncidentsService(ctx)
	if err != nil {
		return err
	}
	if top == nil {
		fmt.Fprintln(w, noIncidents)
		return nil
	}
	fmt.Fprintf(w, "%s: %s incidents\n", top.Service, humanize.Comma(top.IncidentCount))
	return nil
}

const timeLayout = "2006-01-02 15:04:05Z07:00"

func (r *Reporter) writeChecks(w io.Writer, checks []domain.HealthCheck) {
	if len(checks) == 0 {
		fmt.Fprintln(w, noChecks)
		return
	}
	now := r.engine.Now()
	for _, c := range checks {
		state := "healthy"
		if !c.IsHealthy {
			state = "unhealthy"
		}
		status := "-"
		if c.StatusCode != nil {
			status = fmt.Sprint(*c.StatusCode)
		}
		latency := "-"
		if c.ResponseTimeMS != nil {
			latency = humanize.FormatFloat("#,###.##", *c.ResponseTimeMS) + "ms"
		}
		line := fmt.Sprintf("%s %s %s status=%s latency=%s (%s)", c.Timestamp.Format(timeLayout), c.Service, state,
			status, latency, humanize.RelTime(c.Timestamp, now, "ago", "from now"))
		if c.Error != nil && *c.Error != "" {
			line += " error=" + *c.Error
		}
		fmt.Fprintln(w, line)
	}
}
