// Package postgres provides the production Store on PostgreSQL. Each
// Atomically call maps to one serializable database transaction, so
// the all-or-nothing semantics of every ledger operation hold under
// concurrent API traffic.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// Store is a PostgreSQL implementation of store.Store.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres, runs schema migration, and returns the
// store.
func Open(dsn string, opts Options) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxLifetime)
	}

	if err := db.AutoMigrate(
		&projectRow{}, &verifierRow{}, &creditRow{},
		&balanceRow{}, &orderRow{}, &eventRow{}, &counterRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Atomically runs fn in one serializable transaction.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&pgTx{db: db})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type pgTx struct {
	db *gorm.DB
}

func (t *pgTx) Projects() store.ProjectRepository  { return &projectRepo{db: t.db} }
func (t *pgTx) Verifiers() store.VerifierRepository { return &verifierRepo{db: t.db} }
func (t *pgTx) Credits() store.CreditRepository    { return &creditRepo{db: t.db} }
func (t *pgTx) Balances() store.BalanceRepository  { return &balanceRepo{db: t.db} }
func (t *pgTx) Orders() store.OrderRepository      { return &orderRepo{db: t.db} }
func (t *pgTx) Events() store.EventRepository      { return &eventRepo{db: t.db} }

// NextID allocates the next id from the named counter inside the
// current transaction. The upsert both seeds missing counters and
// serializes concurrent allocation on the row lock.
func (t *pgTx) NextID(ctx context.Context, counter store.Counter) (uint64, error) {
	var next uint64
	err := t.db.WithContext(ctx).Raw(
		`INSERT INTO id_counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = id_counters.value + 1
		 RETURNING value`,
		string(counter),
	).Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("allocate id from %s: %w", counter, err)
	}
	return next, nil
}
