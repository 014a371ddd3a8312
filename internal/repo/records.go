package repo

import (
	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
)

// CheckRecord exposes a health check to query.Match and query.Evaluate.
type CheckRecord domain.HealthCheck

func (c CheckRecord) Field(name string) (any, bool) {
	switch name {
	case query.FieldService:
		return c.Service, c.Service != ""
	case query.FieldTimestamp:
		return c.Timestamp, !c.Timestamp.IsZero()
	case query.FieldHealthy:
		return c.IsHealthy, true
	case query.FieldResponseTime:
		if c.ResponseTimeMS == nil {
			return nil, false
		}
		return *c.ResponseTimeMS, true
	case query.FieldStatusCode:
		if c.StatusCode == nil {
			return nil, false
		}
		return *c.StatusCode, true
	case query.FieldURL:
		return c.URL, c.URL != ""
	case query.FieldError:
		if c.Error == nil {
			return nil, false
		}
		return *c.Error, true
	}
	return nil, false
}

type IncidentRecord domain.Incident

func (i IncidentRecord) Field(name string) (any, bool) {
	switch name {
	case query.FieldService:
		return i.Service, i.Service != ""
	case query.FieldStatus:
		return string(i.Status), i.Status != ""
	case query.FieldType:
		return i.Type, i.Type != ""
	case query.FieldStartedAt:
		return i.StartedAt, !i.StartedAt.IsZero()
	case query.FieldResolvedAt:
		if i.ResolvedAt == nil {
			return nil, false
		}
		return *i.ResolvedAt, true
	}
	return nil, false
}
