package graph

import (
	"sync/atomic"

	"github.com/riskpipe/supplychain/pkg/catalog"
)

// Cache holds the current supplier dependency graph, rebuilt whenever
// the catalog snapshot changes and swapped via atomic.Pointer so the
// alert stage never blocks readers on a rebuild, the same pattern
// pkg/catalog.Cache uses for CompanyProfile/Supplier snapshots.
type Cache struct {
	current atomic.Pointer[Graph]
}

// NewCache constructs an empty graph cache; call Refresh before first use.
func NewCache() *Cache {
	return &Cache{}
}

// Refresh rebuilds the graph from a catalog snapshot and atomically
// replaces the current one.
func (c *Cache) Refresh(snap *catalog.Snapshot) {
	c.current.Store(Build(snap.Company, snap.Suppliers))
}

// Snapshot returns the current graph, or nil if Refresh has never run.
func (c *Cache) Snapshot() *Graph {
	return c.current.Load()
}
