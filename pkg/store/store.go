// Package store defines the document-store contracts for the six
// collections spec.md §6 names, with upsert-by-id semantics for the
// collections an at-least-once stage can write more than once
// (articles, risk_events, alerts). A MongoDB implementation and an
// in-memory implementation both satisfy these interfaces, mirroring the
// teacher's interface-first Provider design so the backend is swappable.
package store

import (
	"context"

	"github.com/riskpipe/supplychain/pkg/model"
)

// CompanyStore reads and seeds the single-tenant company profile.
type CompanyStore interface {
	GetCompany(ctx context.Context, id string) (model.CompanyProfile, error)
	UpsertCompany(ctx context.Context, company model.CompanyProfile) error
}

// SupplierStore reads and seeds a company's supplier catalog.
type SupplierStore interface {
	ListSuppliers(ctx context.Context, companyID string) ([]model.Supplier, error)
	GetSupplierByName(ctx context.Context, companyID, name string) (model.Supplier, bool, error)
	UpsertSupplier(ctx context.Context, supplier model.Supplier) error
}

// ArticleStore persists normalized articles idempotently by event ID.
type ArticleStore interface {
	UpsertArticle(ctx context.Context, article model.Article) error
	GetArticle(ctx context.Context, eventID string) (model.Article, error)
	MarkProcessed(ctx context.Context, eventID string, riskEventID string) error
}

// RiskEventStore persists scored risk events idempotently by ID.
type RiskEventStore interface {
	UpsertRiskEvent(ctx context.Context, event model.RiskEvent) error
	GetRiskEvent(ctx context.Context, id string) (model.RiskEvent, error)
}

// AlertStore persists alerts idempotently by ID and supports
// acknowledgement and listing; cmd/api's read-only surface uses the
// listing.
type AlertStore interface {
	UpsertAlert(ctx context.Context, alert model.Alert) error
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	ListUnacknowledged(ctx context.Context, companyID string, severity model.Severity, limit int) ([]model.Alert, error)
	Acknowledge(ctx context.Context, id, acknowledgedBy string) error
}

// ReportStore persists periodic report rollups.
type ReportStore interface {
	InsertReport(ctx context.Context, report model.Report) error
	ListReports(ctx context.Context, companyID string, period model.ReportPeriod, limit int) ([]model.Report, error)
}

// Store aggregates all six collection contracts behind one handle, the
// shape cmd/riskctl and cmd/api wire concrete implementations through.
type Store interface {
	CompanyStore
	SupplierStore
	ArticleStore
	RiskEventStore
	AlertStore
	ReportStore
}
