package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"intrasim/types"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.ThreeMinutes:   "3 minutes",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.TwoHours:       "2 hours",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
}

// GetBars returns the bucketed close/volume series for one asset, oldest
// first, over [start, end).
func (db *Database) GetBars(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregateParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		StartTime:  start,
		EndTime:    end,
	}
	rows, err := db.bars.Aggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(rows, interval, ticker), nil
}

func convertBars(rows []barRow, interval types.Interval, ticker string) []types.Bar {
	var bars []types.Bar
	for _, row := range rows {
		bars = append(bars, types.Bar{
			Symbol:    ticker,
			Interval:  interval,
			Timestamp: row.Bucket,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	return bars
}
