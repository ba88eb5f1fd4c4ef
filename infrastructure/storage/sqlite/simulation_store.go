package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// DefaultTable is the simulations table name.
const DefaultTable = "freight_simulations"

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SimulationStore is a SQLite-backed freight.SimulationSink.
// Writes are idempotent on the record ID.
type SimulationStore struct {
	db    *sql.DB
	table string
}

// NewSimulationStore opens the database and migrates it when AutoMigrate is set.
func NewSimulationStore(cfg Config, opts ...Option) (*SimulationStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tablePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", cfg.Table)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &SimulationStore{db: db, table: cfg.Table}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *SimulationStore) migrate() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			destination TEXT NOT NULL,
			total_weight REAL NOT NULL,
			quantity INTEGER NOT NULL,
			best_carrier TEXT NOT NULL,
			best_service TEXT NOT NULL,
			best_price TEXT NOT NULL,
			best_margin REAL,
			strategy TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_tenant ON %[1]s(tenant_id, created_at);
	`, s.table)

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// RecordSimulation inserts a record. A duplicate ID is ignored.
func (s *SimulationStore) RecordSimulation(ctx context.Context, rec freight.SimulationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var margin sql.NullFloat64
	if rec.BestMargin != nil {
		margin = sql.NullFloat64{Float64: *rec.BestMargin, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT OR IGNORE INTO %s (id, tenant_id, destination, total_weight, quantity, best_carrier,
			best_service, best_price, best_margin, strategy, fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table),
		rec.ID, rec.TenantID, rec.Destination, rec.TotalWeight, rec.Quantity, rec.BestCarrier,
		rec.BestService, rec.BestPrice.StringFixed(2), margin, string(rec.Strategy),
		rec.Fingerprint, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}
	return nil
}

// ListByTenant returns the most recent simulations of a tenant.
func (s *SimulationStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]freight.SimulationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, tenant_id, destination, total_weight, quantity, best_carrier, best_service,
			best_price, best_margin, strategy, fingerprint, created_at
		 FROM %s WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`, s.table),
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []freight.SimulationRecord
	for rows.Next() {
		var (
			rec      freight.SimulationRecord
			price    string
			margin   sql.NullFloat64
			strategy string
			created  int64
		)
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Destination, &rec.TotalWeight, &rec.Quantity,
			&rec.BestCarrier, &rec.BestService, &price, &margin, &strategy, &rec.Fingerprint, &created); err != nil {
			return nil, err
		}
		if rec.BestPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if margin.Valid {
			m := margin.Float64
			rec.BestMargin = &m
		}
		rec.Strategy = freight.WeightStrategy(strategy)
		rec.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SimulationStore) Close() error {
	return s.db.Close()
}

var _ freight.SimulationSink = (*SimulationStore)(nil)
