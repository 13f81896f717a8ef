package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("timeframe not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoBars               = errors.New("no bars found in datasource")
)

type assetSource interface {
	AssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}
type barSource interface {
	Aggregates(ctx context.Context, arg aggregateParams) ([]barRow, error)
}

// Database holds the connection pool and the query sources.
type Database struct {
	assets assetSource
	bars   barSource
	pool   *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established.
	if err := pool.Ping(ctx); err != nil {
		return Database{}, err
	}

	source := pgxSource{pool: pool}
	return Database{
		assets: source,
		bars:   source,
		pool:   pool}, nil
}

// Close releases the underlying pool.
func (db *Database) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
