// Package catalog holds the read-mostly CompanyProfile + Supplier
// snapshot every worker consults on the hot path. It is refreshed on
// SIGHUP or a periodic interval and swapped via atomic.Pointer so
// readers never hold a lock across I/O (spec.md §5), the same pattern
// the teacher uses for its provider.Registry background refresh.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/riskpipe/supplychain/pkg/model"
)

// Snapshot is one immutable view of the catalog.
type Snapshot struct {
	Company   model.CompanyProfile
	Suppliers []model.Supplier
}

// Loader fetches a fresh snapshot from the document store (external
// collaborator, see pkg/store).
type Loader interface {
	LoadCompany(ctx context.Context, companyID string) (model.CompanyProfile, error)
	LoadSuppliers(ctx context.Context, companyID string) ([]model.Supplier, error)
}

// Cache is a concurrency-safe, atomically-swapped catalog snapshot.
type Cache struct {
	companyID string
	loader    Loader
	current   atomic.Pointer[Snapshot]
}

// New constructs an empty cache; call Refresh before first use.
func New(companyID string, loader Loader) *Cache {
	return &Cache{companyID: companyID, loader: loader}
}

// Refresh loads a new snapshot and atomically replaces the current one.
func (c *Cache) Refresh(ctx context.Context) error {
	company, err := c.loader.LoadCompany(ctx, c.companyID)
	if err != nil {
		return fmt.Errorf("load company %s: %w", c.companyID, err)
	}
	suppliers, err := c.loader.LoadSuppliers(ctx, c.companyID)
	if err != nil {
		return fmt.Errorf("load suppliers for %s: %w", c.companyID, err)
	}
	c.current.Store(&Snapshot{Company: company, Suppliers: suppliers})
	return nil
}

// Snapshot returns the current immutable view. Callers must not mutate
// the returned value's slices/maps.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// SupplierByName does a case-insensitive lookup against the snapshot.
func (s *Snapshot) SupplierByName(name string) (model.Supplier, bool) {
	for _, sup := range s.Suppliers {
		if equalFold(sup.Name, name) {
			return sup, true
		}
	}
	return model.Supplier{}, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// BuildKeywords constructs the company_keywords vector used by
// RelevanceFilter: company name ∪ top-5 tier-1 suppliers by supply
// volume ∪ top-3 materials by criticality ∪ top-3 geographies. Mirrors
// the original build_company_keywords.
func (s *Snapshot) BuildKeywords() []string {
	keywords := []string{s.Company.Name}

	tier1 := make([]model.Supplier, 0, len(s.Suppliers))
	for _, sup := range s.Suppliers {
		if sup.Tier == 1 {
			tier1 = append(tier1, sup)
		}
	}
	sort.Slice(tier1, func(i, j int) bool { return tier1[i].SupplyVolumePct > tier1[j].SupplyVolumePct })
	for i := 0; i < len(tier1) && i < 5; i++ {
		keywords = append(keywords, tier1[i].Name)
	}

	type matCrit struct {
		name string
		crit int
	}
	materials := make([]matCrit, 0, len(s.Company.MaterialCriticality))
	for m, c := range s.Company.MaterialCriticality {
		materials = append(materials, matCrit{m, c})
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].crit > materials[j].crit })
	for i := 0; i < len(materials) && i < 3; i++ {
		keywords = append(keywords, materials[i].name)
	}

	for i := 0; i < len(s.Company.KeyGeographies) && i < 3; i++ {
		keywords = append(keywords, s.Company.KeyGeographies[i])
	}

	return keywords
}

// TopKeywords returns the top-N entries of a priority-ordered list,
// joined later by the Fetcher into an OR query. The list it builds is
// [company_name] ++ suppliers-by-volume ++ materials-by-criticality ++
// geographies, the order spec.md §4.3 specifies.
func (s *Snapshot) TopKeywords(n int) []string {
	priority := []string{s.Company.Name}

	suppliers := append([]model.Supplier(nil), s.Suppliers...)
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].SupplyVolumePct > suppliers[j].SupplyVolumePct })
	for _, sup := range suppliers {
		priority = append(priority, sup.Name)
	}

	type matCrit struct {
		name string
		crit int
	}
	materials := make([]matCrit, 0, len(s.Company.MaterialCriticality))
	for m, c := range s.Company.MaterialCriticality {
		materials = append(materials, matCrit{m, c})
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].crit > materials[j].crit })
	for _, m := range materials {
		priority = append(priority, m.name)
	}

	priority = append(priority, s.Company.KeyGeographies...)

	if n > len(priority) {
		n = len(priority)
	}
	return priority[:n]
}
