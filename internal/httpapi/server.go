package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/healthreport/internal/httpapi/middleware"
	"github.com/hamed0406/healthreport/internal/metrics"
	"github.com/hamed0406/healthreport/internal/report"
	"github.com/hamed0406/healthreport/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Store    repo.Store
	Engine   *metrics.Engine
	Reporter *report.Reporter
}

func NewServer(l *zap.Logger, store repo.Store, e *metrics.Engine, rep *report.Reporter) *Server {
	return &Server{Logger: l, Store: store, Engine: e, Reporter: rep}
}

// Router mounts the read-only API. Read routes accept public or admin keys;
// /api/report runs the whole catalog and needs an admin key.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "X-API-Key"},
		}))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(keys))
			r.Use(apimw.RateLimit(pubRPM, pubBurst))

			r.Get("/services/{service}/checks", s.handleChecksForService)
			r.Get("/services/{service}/count", s.handleCountForService)
			r.Get("/services/counts", s.handleCountPerService)
			r.Get("/checks", s.handleChecksInRange)
			r.Get("/checks/unhealthy", s.handleUnhealthy)

			r.Get("/stats/response-time", s.handleAverageResponseTime)
			r.Get("/stats/uptime", s.handleUptime)
			r.Get("/stats/slowest", s.handleSlowest)
			r.Get("/stats/hourly", s.handleHourly)
			r.Get("/stats/downtime", s.handleDowntime)

			r.Get("/incidents/active", s.handleActiveIncidents)
			r.Get("/incidents/top", s.handleMostIncidents)
			r.Get("/incidents/duration", s.handleIncidentDuration)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(keys))
			r.Use(apimw.RateLimit(admRPM, admBurst))

			r.Get("/report", s.handleReport)
		})
	})

	return r
}
