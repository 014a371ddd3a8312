package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/repo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps engine errors to responses: store failures are 503, anything
// else is a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repo.ErrStoreUnavailable) {
		s.Logger.Warn("query_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.Logger.Error("query_failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "query failed")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		s.Logger.Warn("healthz_failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleChecksForService(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.ChecksForService(r.Context(), chi.URLParam(r, "service"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCountForService(w http.ResponseWriter, r *http.Request) {
	svc := chi.URLParam(r, "service")
	n, err := s.Engine.CountForService(r.Context(), svc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service": svc, "checks": n})
}

// handleCountPerService takes ?service=a&service=b or ?services=a,b.
func (s *Server) handleCountPerService(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	services := q["service"]
	for _, part := range strings.Split(q.Get("services"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			services = append(services, part)
		}
	}
	if len(services) == 0 {
		writeError(w, http.StatusBadRequest, "service list required")
		return
	}
	out, err := s.Engine.CountPerService(r.Context(), services...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChecksInRange(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseTime(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	out, err := s.Engine.ChecksInRange(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnhealthy(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.UnhealthyChecks(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAverageResponseTime takes ?since=RFC3339 or ?window=30m; the
// default is the last hour.
func (s *Server) handleAverageResponseTime(w http.ResponseWriter, r *http.Request) {
	start := s.Engine.Now().Add(-time.Hour)
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		start = s.Engine.Now().Add(-d)
	}
	if r.URL.Query().Get("since") != "" {
		t, err := parseTime(r, "since")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start = t
	}
	out, err := s.Engine.AverageResponseTime(r.Context(), start)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.UptimePercentage(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSlowest(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.SlowestResponsePerService(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.HourlyTrend(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDowntime(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "min must be a positive integer")
			return
		}
		threshold = n
	}
	out, err := s.Engine.SimultaneousDowntime(r.Context(), threshold)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveIncidents(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.ActiveIncidents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMostIncidents answers 200 with null when there are no incidents.
func (s *Server) handleMostIncidents(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.MostIncidentsService(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIncidentDuration(w http.ResponseWriter, r *http.Request) {
	out, err := s.Engine.AverageIncidentDuration(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Reporter.Collect(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseTime(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, errors.New(key + " is required (RFC3339)")
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return t.UTC(), nil
}
