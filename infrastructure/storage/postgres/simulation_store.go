package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// DefaultTable is the simulations table name.
const DefaultTable = "freight_simulations"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SimulationStore is a PostgreSQL-backed freight.SimulationSink.
// Writes are idempotent on the record ID.
type SimulationStore struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// NewSimulationStore creates a store. Empty schema and table fall back to
// "public" and DefaultTable.
func NewSimulationStore(pool *pgxpool.Pool, schema, table string) (*SimulationStore, error) {
	if schema == "" {
		schema = "public"
	}
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(schema) || !identPattern.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid identifier %q.%q", schema, table)
	}
	return &SimulationStore{
		pool:   pool,
		schema: schema,
		table:  table,
	}, nil
}

// tableName returns the fully qualified table name.
func (s *SimulationStore) tableName() string {
	return fmt.Sprintf("%s.%s", s.schema, s.table)
}

// Migrate creates the simulations table if it does not exist.
func (s *SimulationStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			destination TEXT NOT NULL,
			total_weight DOUBLE PRECISION NOT NULL,
			quantity INTEGER NOT NULL,
			best_carrier TEXT NOT NULL,
			best_service TEXT NOT NULL,
			best_price NUMERIC(12,2) NOT NULL,
			best_margin DOUBLE PRECISION,
			strategy TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[2]s_tenant_idx ON %[1]s (tenant_id, created_at);
	`, s.tableName(), s.table)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// RecordSimulation inserts a record. A duplicate ID is ignored.
func (s *SimulationStore) RecordSimulation(ctx context.Context, rec freight.SimulationRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, destination, total_weight, quantity, best_carrier,
			best_service, best_price, best_margin, strategy, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.Destination,
		rec.TotalWeight,
		rec.Quantity,
		rec.BestCarrier,
		rec.BestService,
		rec.BestPrice.StringFixed(2),
		rec.BestMargin,
		string(rec.Strategy),
		rec.Fingerprint,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}
	return nil
}

// ListByTenant returns the most recent simulations of a tenant.
func (s *SimulationStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]freight.SimulationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, destination, total_weight, quantity, best_carrier,
			best_service, best_price::text, best_margin, strategy, fingerprint, created_at
		FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2
	`, s.tableName())

	rows, err := s.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanRecord)
}

func scanRecord(row pgx.CollectableRow) (freight.SimulationRecord, error) {
	var (
		rec      freight.SimulationRecord
		price    string
		strategy string
		created  time.Time
	)
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Destination, &rec.TotalWeight, &rec.Quantity,
		&rec.BestCarrier, &rec.BestService, &price, &rec.BestMargin, &strategy, &rec.Fingerprint, &created)
	if err != nil {
		return rec, err
	}
	rec.BestPrice, err = decimal.NewFromString(price)
	rec.Strategy = freight.WeightStrategy(strategy)
	rec.CreatedAt = created
	return rec, err
}

var _ freight.SimulationSink = (*SimulationStore)(nil)
