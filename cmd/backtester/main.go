package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"intrasim/internal/config"
	"intrasim/internal/engine"
	"intrasim/internal/repository"
	"intrasim/internal/validate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration")
	startRaw := flag.String("start", "", "range start, YYYY-MM-DD (UTC)")
	endRaw := flag.String("end", "", "range end, YYYY-MM-DD (UTC), exclusive")
	ledgerPath := flag.String("ledger", "ledger.csv", "trade ledger output path")
	wfCSVPath := flag.String("walkforward-csv", "", "per-fold CSV output path (empty disables)")
	mcCSVPath := flag.String("montecarlo-csv", "", "per-iteration CSV output path (empty disables)")
	flag.Parse()

	// .env is optional; a real environment wins either way.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*configPath, *startRaw, *endRaw, *ledgerPath, *wfCSVPath, *mcCSVPath, log); err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
}

func run(configPath, startRaw, endRaw, ledgerPath, wfCSVPath, mcCSVPath string, log *zap.Logger) error {
	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		return fmt.Errorf("parse -end: %w", err)
	}

	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg, err := file.EngineConfig()
	if err != nil {
		return err
	}
	factory, err := file.ProviderFactory()
	if err != nil {
		return err
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	ctx := context.Background()
	db, err := repository.NewDatabase(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	asset, err := db.GetAssetByTicker(ctx, cfg.Symbol)
	if err != nil {
		return err
	}
	bars, err := db.GetBars(ctx, asset.Id, asset.Ticker, cfg.Timeframe, start, end)
	if err != nil {
		return err
	}
	log.Info("loaded bars",
		zap.String("ticker", asset.Ticker),
		zap.String("timeframe", string(cfg.Timeframe)),
		zap.Int("bars", len(bars)))

	// Ad-hoc runs get a fresh id; sweeps derive deterministic ids per fold.
	cfg.RollID = uuid.NewString()
	provider, err := factory()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg, provider)
	if err != nil {
		return err
	}
	result, err := eng.Run(bars)
	if err != nil {
		return err
	}
	log.Info("run complete",
		zap.String("roll_id", result.RollID),
		zap.Int("trades", result.Metrics.TradeCount),
		zap.Float64("sharpe", result.Metrics.Sharpe),
		zap.Float64("max_drawdown", result.Metrics.MaxDrawdown),
		zap.Float64("win_rate", result.Metrics.WinRate))

	if err := engine.WriteLedgerCSVFile(ledgerPath, result.Trades); err != nil {
		return err
	}
	log.Info("ledger written", zap.String("path", ledgerPath))

	if spec, parallelism, ok := file.WindowSpec(); ok {
		// Per-run engine bars are suppressed inside the sweep; the
		// configured flag drives the fold-level bar.
		sweepCfg := cfg
		sweepCfg.RollID = ""
		wf, err := validate.NewWalkForward(sweepCfg, factory, spec, bars, log)
		if err != nil {
			return err
		}
		report, err := wf.Run(ctx, parallelism)
		if err != nil {
			return err
		}
		report.WriteReport(os.Stdout)
		if wfCSVPath != "" {
			if err := writeCSVFile(wfCSVPath, report.WriteCSV); err != nil {
				return err
			}
			log.Info("walk-forward folds written", zap.String("path", wfCSVPath))
		}
	}

	if mcCfg, ok := file.MonteCarloConfig(); ok {
		if len(result.Trades) == 0 {
			log.Warn("skipping monte carlo, run produced no trades")
			return nil
		}
		mcCfg.PeriodsPerYear = cfg.Timeframe.PeriodsPerYear()
		mc, err := validate.NewMonteCarlo(mcCfg, result.Trades, cfg.InitialCapital)
		if err != nil {
			return err
		}
		report, err := mc.Run(ctx)
		if err != nil {
			return err
		}
		report.WriteReport(os.Stdout)
		if mcCSVPath != "" {
			if err := writeCSVFile(mcCSVPath, report.WriteCSV); err != nil {
				return err
			}
			log.Info("monte carlo iterations written", zap.String("path", mcCSVPath))
		}
	}
	return nil
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
