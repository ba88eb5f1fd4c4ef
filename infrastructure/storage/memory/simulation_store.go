package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// SimulationStore keeps simulation records in memory.
type SimulationStore struct {
	records []freight.SimulationRecord
	mu      sync.RWMutex
}

// NewSimulationStore creates an empty store.
func NewSimulationStore() *SimulationStore {
	return &SimulationStore{}
}

// RecordSimulation appends a record.
func (s *SimulationStore) RecordSimulation(ctx context.Context, rec freight.SimulationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	return nil
}

// List returns a copy of the records for a tenant in insertion order.
// An empty tenant returns every record.
func (s *SimulationStore) List(tenantID string) []freight.SimulationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []freight.SimulationRecord
	for _, r := range s.records {
		if tenantID == "" || r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *SimulationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ freight.SimulationSink = (*SimulationStore)(nil)
