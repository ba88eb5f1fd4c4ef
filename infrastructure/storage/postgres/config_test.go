package postgres

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("Host = %s, want localhost", cfg.Host)
	}
	if cfg.Port != 5432 {
		t.Errorf("Port = %d, want 5432", cfg.Port)
	}
	if cfg.Database != "freight" {
		t.Errorf("Database = %s, want freight", cfg.Database)
	}
	if cfg.MaxConns != 10 || cfg.MinConns != 2 {
		t.Errorf("pool = %d/%d, want 2/10", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.ConnectTimeout)
	}
	if cfg.Schema != "public" {
		t.Errorf("Schema = %s, want public", cfg.Schema)
	}
}

func TestConfig_ConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "default config",
			config:   DefaultConfig(),
			expected: "host=localhost port=5432 dbname=freight user=postgres password= sslmode=disable",
		},
		{
			name: "custom config",
			config: Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "quotes",
				User:     "app",
				Password: "secret123",
				SSLMode:  "require",
			},
			expected: "host=db.example.com port=5433 dbname=quotes user=app password=secret123 sslmode=require",
		},
		{
			name:     "dsn wins",
			config:   Config{DSN: "postgres://app@db/quotes", Host: "ignored"},
			expected: "postgres://app@db/quotes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.config.ConnectionString(); got != tt.expected {
				t.Errorf("ConnectionString() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithHost("db.internal"),
		WithCredentials("admin", "pw"),
		WithPoolSize(1, 4),
		WithSchema("audit"),
		WithDSN("postgres://x"),
	} {
		opt(&cfg)
	}

	if cfg.Host != "db.internal" || cfg.User != "admin" || cfg.Password != "pw" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MinConns != 1 || cfg.MaxConns != 4 || cfg.Schema != "audit" || cfg.DSN != "postgres://x" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConnect_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), DefaultConfig(), WithDSN("postgres://%zz"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNewSimulationStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		schema  string
		table   string
		want    string
		wantErr bool
	}{
		{name: "defaults", want: "public.freight_simulations"},
		{name: "custom", schema: "audit", table: "quotes", want: "audit.quotes"},
		{name: "injection", table: "x; DROP TABLE y", wantErr: true},
		{name: "bad schema", schema: "1abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := NewSimulationStore(nil, tt.schema, tt.table)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSimulationStore() error = %v", err)
			}
			if got := s.tableName(); got != tt.want {
				t.Errorf("tableName() = %s, want %s", got, tt.want)
			}
		})
	}
}
