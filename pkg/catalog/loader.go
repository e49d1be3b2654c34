package catalog

import (
	"context"

	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/store"
)

// storeLoader adapts a store.Store into the narrower Loader contract the
// cache needs, decoupling the cache from the rest of the Store surface.
type storeLoader struct {
	s store.Store
}

// NewStoreLoader wraps a document store as a catalog Loader.
func NewStoreLoader(s store.Store) Loader {
	return &storeLoader{s: s}
}

func (l *storeLoader) LoadCompany(ctx context.Context, companyID string) (model.CompanyProfile, error) {
	return l.s.GetCompany(ctx, companyID)
}

func (l *storeLoader) LoadSuppliers(ctx context.Context, companyID string) ([]model.Supplier, error) {
	return l.s.ListSuppliers(ctx, companyID)
}
