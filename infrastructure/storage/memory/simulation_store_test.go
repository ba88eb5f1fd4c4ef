package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
	"github.com/felixgeelhaar/freight-agent/infrastructure/storage/memory"
)

func TestSimulationStore(t *testing.T) {
	t.Parallel()

	store := memory.NewSimulationStore()
	ctx := context.Background()

	records := []freight.SimulationRecord{
		{ID: "s1", TenantID: "acme", Destination: "01001000", BestPrice: decimal.RequireFromString("25.90"), CreatedAt: time.Now()},
		{ID: "s2", TenantID: "globex", Destination: "20040002", BestPrice: decimal.RequireFromString("80.00"), CreatedAt: time.Now()},
		{ID: "s3", TenantID: "acme", Destination: "30130010", BestPrice: decimal.RequireFromString("12.00"), CreatedAt: time.Now()},
	}
	for _, r := range records {
		if err := store.RecordSimulation(ctx, r); err != nil {
			t.Fatalf("RecordSimulation() error = %v", err)
		}
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}

	acme := store.List("acme")
	if len(acme) != 2 || acme[0].ID != "s1" || acme[1].ID != "s3" {
		t.Errorf("List(acme) = %+v", acme)
	}
	if all := store.List(""); len(all) != 3 {
		t.Errorf("List(\"\") len = %d, want 3", len(all))
	}
}
