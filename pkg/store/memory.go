package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// MemoryStore is an in-process Store used by package tests that need a
// real upsert-by-id contract without a live MongoDB instance.
type MemoryStore struct {
	mu        sync.Mutex
	companies map[string]model.CompanyProfile
	suppliers map[string][]model.Supplier
	articles  map[string]model.Article
	events    map[string]model.RiskEvent
	alerts    map[string]model.Alert
	reports   []model.Report
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies: make(map[string]model.CompanyProfile),
		suppliers: make(map[string][]model.Supplier),
		articles:  make(map[string]model.Article),
		events:    make(map[string]model.RiskEvent),
		alerts:    make(map[string]model.Alert),
	}
}

// SeedCompany and SeedSuppliers let tests populate fixture data directly.
func (m *MemoryStore) SeedCompany(c model.CompanyProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
}

func (m *MemoryStore) SeedSuppliers(companyID string, suppliers []model.Supplier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[companyID] = append([]model.Supplier(nil), suppliers...)
}

func (m *MemoryStore) GetCompany(ctx context.Context, id string) (model.CompanyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return model.CompanyProfile{}, errkind.Wrap(errkind.NotFound, errNotFound("company", id))
	}
	return c, nil
}

func (m *MemoryStore) UpsertCompany(ctx context.Context, company model.CompanyProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[company.ID] = company
	return nil
}

func (m *MemoryStore) ListSuppliers(ctx context.Context, companyID string) ([]model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Supplier(nil), m.suppliers[companyID]...), nil
}

func (m *MemoryStore) GetSupplierByName(ctx context.Context, companyID, name string) (model.Supplier, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.suppliers[companyID] {
		if s.Name == name {
			return s, true, nil
		}
	}
	return model.Supplier{}, false, nil
}

func (m *MemoryStore) UpsertSupplier(ctx context.Context, supplier model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.suppliers[supplier.CompanyID]
	for i, s := range list {
		if s.ID == supplier.ID {
			list[i] = supplier
			m.suppliers[supplier.CompanyID] = list
			return nil
		}
	}
	m.suppliers[supplier.CompanyID] = append(list, supplier)
	return nil
}

func (m *MemoryStore) UpsertArticle(ctx context.Context, article model.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[article.EventID] = article
	return nil
}

func (m *MemoryStore) GetArticle(ctx context.Context, eventID string) (model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[eventID]
	if !ok {
		return model.Article{}, errkind.Wrap(errkind.NotFound, errNotFound("article", eventID))
	}
	return a, nil
}

func (m *MemoryStore) MarkProcessed(ctx context.Context, eventID string, riskEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[eventID]
	if !ok {
		// Mirrors MongoDB's update_one-without-upsert semantics: updating
		// a document that was never inserted matches zero rows and is
		// not an error, so a missing article is a silent no-op rather
		// than a NotFound failure.
		return nil
	}
	a.Processed = true
	// An empty riskEventID means the LLM found no risk: spec.md invariant 1 requires the
	// article be marked processed WITHOUT a linked RiskEvent in that case.
	if riskEventID == "" {
		a.RiskExtracted = false
		a.RiskEventID = nil
	} else {
		a.RiskExtracted = true
		id := riskEventID
		a.RiskEventID = &id
	}
	m.articles[eventID] = a
	return nil
}

func (m *MemoryStore) UpsertRiskEvent(ctx context.Context, event model.RiskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *MemoryStore) GetRiskEvent(ctx context.Context, id string) (model.RiskEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return model.RiskEvent{}, errkind.Wrap(errkind.NotFound, errNotFound("risk event", id))
	}
	return e, nil
}

func (m *MemoryStore) UpsertAlert(ctx context.Context, alert model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return nil
}

func (m *MemoryStore) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, errkind.Wrap(errkind.NotFound, errNotFound("alert", id))
	}
	return a, nil
}

func (m *MemoryStore) ListUnacknowledged(ctx context.Context, companyID string, severity model.Severity, limit int) ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Alert
	for _, a := range m.alerts {
		if a.IsAcknowledged {
			continue
		}
		if severity != "" && a.SeverityBand != severity {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Acknowledge(ctx context.Context, id, acknowledgedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return errkind.Wrap(errkind.NotFound, errNotFound("alert", id))
	}
	a.IsAcknowledged = true
	a.AcknowledgedBy = acknowledgedBy
	now := time.Now().UTC()
	a.AcknowledgedAt = &now
	m.alerts[id] = a
	return nil
}

func (m *MemoryStore) InsertReport(ctx context.Context, report model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *MemoryStore) ListReports(ctx context.Context, companyID string, period model.ReportPeriod, limit int) ([]model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Report
	for _, r := range m.reports {
		if r.CompanyID != companyID {
			continue
		}
		if period != "" && r.Period != period {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func errNotFound(kind, id string) error {
	return &notFoundErr{kind: kind, id: id}
}

type notFoundErr struct {
	kind, id string
}

func (e *notFoundErr) Error() string { return e.kind + " " + e.id + " not found" }

var _ Store = (*MemoryStore)(nil)
