package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"intrasim/types"
)

var testInterval = types.OneMinute
var startTime = time.UnixMilli(0)
var endTime = startTime.Add(time.Minute * 5)

type mockBarSource struct {
	queryError error
}

func TestDatabase_GetBars(t *testing.T) {
	type args struct {
		assetId  int
		interval types.Interval
		start    time.Time
		end      time.Time
	}
	tests := []struct {
		name     string
		args     args
		want     []types.Bar
		queryErr error
		wantErr  error
	}{
		{"should throw ErrNoBars on empty result", args{999, testInterval, startTime, startTime}, nil, nil, ErrNoBars},
		{"should throw ErrNoBars on no rows", args{999, testInterval, startTime, endTime}, nil, pgx.ErrNoRows, ErrNoBars},
		{"should throw ErrIntervalNotSupported", args{999, types.Interval("W"), startTime, endTime}, nil, nil, ErrIntervalNotSupported},
		{"should return bars", args{999, testInterval, startTime, endTime}, mockBars(startTime, endTime), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				bars: mockBarSource{
					queryError: tt.queryErr,
				},
			}
			got, err := db.GetBars(context.Background(), tt.args.assetId, "AAPL", tt.args.interval, tt.args.start, tt.args.end)

			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetBars() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GetBars() returned %d bars, want %d", len(got), len(tt.want))
			}
			for i := 0; i < len(tt.want); i++ {
				if got[i].Symbol != "AAPL" {
					t.Errorf("GetBars() %s symbol got = %v, want AAPL", got[i].Timestamp, got[i].Symbol)
					break
				}
				if got[i].Interval != tt.args.interval {
					t.Errorf("GetBars() %s interval got = %v, want %v", got[i].Timestamp, got[i].Interval, tt.args.interval)
					break
				}
				if !got[i].Close.Equal(tt.want[i].Close) {
					t.Errorf("GetBars() %s close got = %v, want %v", got[i].Timestamp, got[i].Close, tt.want[i].Close)
					break
				}
			}
		})
	}
}

func (m mockBarSource) Aggregates(_ context.Context, arg aggregateParams) ([]barRow, error) {
	if m.queryError != nil {
		return nil, m.queryError
	}
	var rows []barRow
	i := arg.StartTime
	for i.Before(arg.EndTime) {
		rows = append(rows, barRow{
			Bucket: i,
			Close:  decimal.NewFromInt(i.UnixMilli()),
			Volume: decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return rows, nil
}

func mockBars(start, end time.Time) []types.Bar {
	var bars []types.Bar
	i := start
	for i.Before(end) {
		bars = append(bars, types.Bar{
			Symbol:    "AAPL",
			Timestamp: i,
			Interval:  testInterval,
			Close:     decimal.NewFromInt(i.UnixMilli()),
			Volume:    decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return bars
}
