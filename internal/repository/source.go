package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type assetRow struct {
	ID         int32     `db:"id"`
	Ticker     string    `db:"ticker"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

type aggregateParams struct {
	TimeBucket string
	AssetID    int32
	StartTime  time.Time
	EndTime    time.Time
}

type barRow struct {
	Bucket time.Time       `db:"bucket"`
	Close  decimal.Decimal `db:"close"`
	Volume decimal.Decimal `db:"volume"`
}

const assetByTickerSQL = `
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1`

const aggregatesSQL = `
SELECT time_bucket($1::interval, timestamp) AS bucket,
       last(close, timestamp)               AS close,
       sum(volume)                          AS volume
FROM candles
WHERE asset_id = $2
  AND timestamp >= $3
  AND timestamp < $4
GROUP BY bucket
ORDER BY bucket`

// pgxSource runs the raw queries against the pool.
type pgxSource struct {
	pool *pgxpool.Pool
}

func (s pgxSource) AssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	rows, err := s.pool.Query(ctx, assetByTickerSQL, ticker)
	if err != nil {
		return assetRow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[assetRow])
}

func (s pgxSource) Aggregates(ctx context.Context, arg aggregateParams) ([]barRow, error) {
	rows, err := s.pool.Query(ctx, aggregatesSQL, arg.TimeBucket, arg.AssetID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[barRow])
}
