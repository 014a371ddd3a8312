// Package report runs the metrics catalog for one report run and renders
// the results as text or as a JSON snapshot.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/metrics"
)

// ErrUnknownSection is returned when a requested section key is not in the
// catalog.
var ErrUnknownSection = errors.New("unknown report section")

type Options struct {
	Services    []string      // services for the per-service sections; the first is the focus service
	AvgWindow   time.Duration // trailing window for average response time
	RangeWindow time.Duration // trailing window for the checks-in-range section
	MinServices int           // simultaneous downtime threshold
}

func (o Options) withDefaults() Options {
	if o.AvgWindow <= 0 {
		o.AvgWindow = time.Hour
	}
	if o.RangeWindow <= 0 {
		o.RangeWindow = time.Hour
	}
	if o.MinServices <= 0 {
		o.MinServices = metrics.DefaultMinServicesDown
	}
	return o
}

type Reporter struct {
	engine *metrics.Engine
	log    *zap.Logger
	opts   Options
}

func New(engine *metrics.Engine, log *zap.Logger, opts Options) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{engine: engine, log: log, opts: opts.withDefaults()}
}

// Section is one independent query of the catalog.
type Section struct {
	Key   string
	Title string
	run   func(r *Reporter, ctx context.Context, w io.Writer) error
}

// Sections lists the catalog in run order.
func Sections() []Section {
	return catalog
}

// Keys returns every section key, in run order.
func Keys() []string {
	keys := make([]string, len(catalog))
	for i, s := range catalog {
		keys[i] = s.Key
	}
	return keys
}

func pick(only []string) ([]Section, error) {
	if len(only) == 0 {
		return catalog, nil
	}
	out := make([]Section, 0, len(only))
	for _, key := range only {
		found := false
		for _, s := range catalog {
			if s.Key == strings.TrimSpace(key) {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
		}
	}
	return out, nil
}

// Run renders the selected sections (all when only is empty) in catalog
// order. The first store failure aborts the run; sections already written
// stay written.
func (r *Reporter) Run(ctx context.Context, w io.Writer, only ...string) error {
	sections, err := pick(only)
	if err != nil {
		return err
	}
	start := time.Now()
	r.log.Info("report_started", zap.Int("sections", len(sections)))
	for i, s := range sections {
		fmt.Fprintf(w, "\n=== %d. %s ===\n", i+1, s.Title)
		if err := s.run(r, ctx, w); err != nil {
			r.log.Error("report_aborted",
				zap.String("section", s.Key),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return fmt.Errorf("section %s: %w", s.Key, err)
		}
	}
	r.log.Info("report_finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Reporter) focus() string {
	if len(r.opts.Services) == 0 {
		return ""
	}
	return r.opts.Services[0]
}
