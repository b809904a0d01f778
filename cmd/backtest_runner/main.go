package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"stratLab/config"
	"stratLab/internal/adapters/logger"
	"stratLab/internal/adapters/sqlite"
	"stratLab/internal/analytics"
	"stratLab/internal/backtest"
	"stratLab/internal/orchestrator"
	"stratLab/internal/ports"
	"stratLab/internal/slippage"
	"stratLab/internal/strategy"
	"stratLab/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger, syncFn, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to build logger: %v", err)
	}
	defer syncFn()

	ctx := context.Background()

	// 2. Load the price panels from CSV, one file per symbol
	files := make([]string, 0, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		files = append(files, filepath.Join(cfg.DataDir, fmt.Sprintf("%s_%s.csv", symbol, cfg.Interval)))
	}
	ds, err := utils.DatasetFromCSV(files...)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to load price data")
		log.Fatalf("Failed to load price data: %v", err)
	}
	appLogger.Info(ctx, "Loaded price panels", map[string]interface{}{
		"symbols": len(ds.Closes.Symbols()),
		"bars":    ds.Closes.Len(),
	})

	// 3. Build the slippage model and run configuration
	model, err := slippage.FromConfig(cfg.SlippageModel, cfg.SlippageParams)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to build slippage model")
		log.Fatalf("Failed to build slippage model: %v", err)
	}
	runCfg := backtest.RunConfig{
		InitialCash:      cfg.InitialCash,
		RebalanceEvery:   cfg.RebalanceEvery,
		MaxSingleLossPct: cfg.MaxSingleLossPct,
		MaxPositionPct:   cfg.MaxPositionPct,
		Slippage:         model,
	}

	// 4. Set up the strategy grid to compare
	tasks := buildTasks()
	appLogger.Info(ctx, "Starting backtest batch", map[string]interface{}{
		"tasks":   len(tasks),
		"workers": cfg.Workers,
	})

	// 5. Run the batch
	orch := orchestrator.New(cfg.Workers, appLogger, strategy.Deps{Logger: appLogger})
	startedAt := time.Now()
	results := orch.RunBatch(ctx, tasks, ds, runCfg)

	// 6. Persist runs and trades
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "Failed to open run repository")
		log.Fatalf("Failed to open run repository: %v", err)
	}
	defer repo.Close()

	for name, res := range results {
		summary := &ports.RunSummary{
			StrategyName: name,
			StartedAt:    startedAt,
			FinishedAt:   startedAt.Add(res.Duration),
			Success:      res.Success,
			ErrorMessage: res.Error,
			Metrics:      res.Metrics,
		}
		runID, err := repo.SaveRun(ctx, summary)
		if err != nil {
			appLogger.Error(ctx, err, "Failed to save run", map[string]interface{}{"strategy": name})
			continue
		}
		if err := repo.SaveTrades(ctx, runID, res.Trades); err != nil {
			appLogger.Error(ctx, err, "Failed to save trades", map[string]interface{}{"strategy": name})
		}
	}

	// 7. Write the comparison report
	report := orchestrator.BuildReport(results, []string{
		analytics.MetricTotalReturn,
		analytics.MetricAnnualReturn,
		analytics.MetricSharpeRatio,
		analytics.MetricMaxDrawdown,
		analytics.MetricWinRate,
		analytics.MetricTotalTrades,
		analytics.MetricFinalValue,
	})
	reportFile := filepath.Join(cfg.DataDir, "strategy_comparison.csv")
	if err := report.WriteCSVFile(reportFile); err != nil {
		appLogger.Error(ctx, err, "Failed to write comparison report")
		log.Fatalf("Failed to write comparison report: %v", err)
	}
	appLogger.Info(ctx, "Comparison report written", map[string]interface{}{"filename": reportFile})

	for _, row := range report.Rows {
		if row.Status != "ok" {
			appLogger.Warn(ctx, "Strategy run failed", map[string]interface{}{
				"strategy": row.Strategy,
				"error":    row.Error,
			})
			continue
		}
		appLogger.Info(ctx, "Strategy run finished", map[string]interface{}{
			"strategy":     row.Strategy,
			"total_return": row.Metrics[analytics.MetricTotalReturn],
			"sharpe_ratio": row.Metrics[analytics.MetricSharpeRatio],
			"max_drawdown": row.Metrics[analytics.MetricMaxDrawdown],
		})
	}
}

// buildLogger constructs the configured logging backend.
func buildLogger(cfg *config.Config) (ports.Logger, func(), error) {
	if cfg.LogBackend == "zap" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return zl, func() { _ = zl.Sync() }, nil
	}
	return logger.NewStdLogger(cfg.LogLevel), func() {}, nil
}

// buildTasks defines the strategy grid compared in one batch. Every task is a
// plain parameter bag; workers rebuild the live strategies themselves.
func buildTasks() []orchestrator.Task {
	var tasks []orchestrator.Task

	for _, lookback := range []float64{10, 20, 40} {
		tasks = append(tasks, orchestrator.Task{
			Name:         fmt.Sprintf("momentum-%d", int(lookback)),
			StrategyType: strategy.TypeMomentum,
			Params: strategy.Params{
				"top_n":             3,
				"lookback":          lookback,
				"stop_loss_pct":     0.10,
				"trailing_stop_pct": 0.15,
				"max_holding_days":  60,
			},
		})
	}

	for _, threshold := range []float64{0.02, 0.05} {
		tasks = append(tasks, orchestrator.Task{
			Name:         fmt.Sprintf("threshold-%.0fpct", threshold*100),
			StrategyType: strategy.TypeThresholdMomentum,
			Params: strategy.Params{
				"top_n":           3,
				"lookback":        20,
				"threshold":       threshold,
				"stop_loss_pct":   0.10,
				"take_profit_pct": 0.25,
			},
		})
	}

	return tasks
}
