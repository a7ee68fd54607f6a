package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/forefold/leadsflow/internal/models"
)

// AnalyticsCache stores rendered analytics snapshots with a TTL.
type AnalyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// LeadSummary is the analytics rollup over the caller's visible leads.
type LeadSummary struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByCategory map[string]int64 `json:"byCategory"`
	BySource   map[string]int64 `json:"bySource"`
}

// AnalyticsService computes scoped lead rollups, cached per effective owner.
type AnalyticsService struct {
	leads  LeadStore
	scopes *ScopeResolver
	cache  AnalyticsCache
	log    *logrus.Logger
}

func NewAnalyticsService(leads LeadStore, scopes *ScopeResolver, cache AnalyticsCache, log *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{leads: leads, scopes: scopes, cache: cache, log: log}
}

// Summary returns status, category and source counts across the caller's
// visible leads. Results are cached briefly per effective owner; cache
// failures fall through to a fresh computation.
func (s *AnalyticsService) Summary(ctx context.Context, actingUserID models.AccountID) (*LeadSummary, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityViewLeads)
	if err != nil {
		return nil, err
	}

	key := "analytics:summary:" + scope.EffectiveOwner.ID.String()
	if s.cache != nil {
		var cached LeadSummary
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).Warn("analytics cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	summary := &LeadSummary{}
	summary.ByStatus, err = s.leads.CountByField(ctx, scope.OwnerIDs, "lead_status")
	if err != nil {
		return nil, WrapInternal(err, "failed to count leads by status")
	}
	summary.ByCategory, err = s.leads.CountByField(ctx, scope.OwnerIDs, "customer_category")
	if err != nil {
		return nil, WrapInternal(err, "failed to count leads by category")
	}
	summary.BySource, err = s.leads.CountByField(ctx, scope.OwnerIDs, "lead_source")
	if err != nil {
		return nil, WrapInternal(err, "failed to count leads by source")
	}
	for _, n := range summary.ByStatus {
		summary.Total += n
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.log.WithError(err).Warn("analytics cache write failed")
		}
	}
	return summary, nil
}
