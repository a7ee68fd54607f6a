package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/forefold/leadsflow/internal/models"
)

// fakeAnalyticsCache stores JSON snapshots in memory.
type fakeAnalyticsCache struct {
	data map[string][]byte
	gets int
	sets int
}

func newFakeAnalyticsCache() *fakeAnalyticsCache {
	return &fakeAnalyticsCache{data: make(map[string][]byte)}
}

func (c *fakeAnalyticsCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeAnalyticsCache) Set(ctx context.Context, key string, value interface{}) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func TestSummaryCountsVisibleLeadsOnly(t *testing.T) {
	owner := testUser("u1", "Acme")
	colleague := testUser("u2", "Acme")
	rival := testUser("r1", "Globex")
	delegate := testUser("d1", "Acme")
	users := newFakeUserStore(owner, colleague, rival, delegate)
	grants := newFakeGrantStore(&models.DelegationGrant{
		UserID: delegate.ID, ParentUserID: owner.ID, CanViewLeads: true,
	})
	leads := newFakeLeadStore(
		&models.Lead{ID: "a", Name: "A", UserID: owner.ID, LeadStatus: models.StatusNew, LeadSource: models.SourceWebsite},
		&models.Lead{ID: "b", Name: "B", UserID: colleague.ID, LeadStatus: models.StatusHot, CustomerCategory: models.CategoryPotential},
		&models.Lead{ID: "c", Name: "C", UserID: rival.ID, LeadStatus: models.StatusNew},
	)
	scopes := NewScopeResolver(users, grants)
	svc := NewAnalyticsService(leads, scopes, nil, discardLogger())

	summary, err := svc.Summary(context.Background(), delegate.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("total = %d, want 2 (company leads only)", summary.Total)
	}
	if summary.ByStatus[models.StatusNew] != 1 || summary.ByStatus[models.StatusHot] != 1 {
		t.Fatalf("byStatus = %v", summary.ByStatus)
	}
	if summary.BySource[models.SourceWebsite] != 1 {
		t.Fatalf("bySource = %v", summary.BySource)
	}
}

func TestSummaryUsesCache(t *testing.T) {
	owner := testUser("u1", "Acme")
	users := newFakeUserStore(owner)
	leads := newFakeLeadStore(
		&models.Lead{ID: "a", Name: "A", UserID: owner.ID, LeadStatus: models.StatusNew},
	)
	cache := newFakeAnalyticsCache()
	scopes := NewScopeResolver(users, newFakeGrantStore())
	svc := NewAnalyticsService(leads, scopes, cache, discardLogger())

	first, err := svc.Summary(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache writes = %d, want 1", cache.sets)
	}

	// A new lead is invisible until the snapshot expires.
	if err := leads.Create(context.Background(), &models.Lead{ID: "b", Name: "B", UserID: owner.ID, LeadStatus: models.StatusHot}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	second, err := svc.Summary(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if second.Total != first.Total {
		t.Fatalf("cached total = %d, want %d", second.Total, first.Total)
	}
	if cache.sets != 1 {
		t.Fatalf("cache writes = %d, want still 1", cache.sets)
	}
}
