package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stratLab/internal/analytics"
	"stratLab/internal/backtest"
	"stratLab/internal/domain"
	"stratLab/internal/ports"
	"stratLab/internal/strategy"
)

// Task describes one backtest to run: a strategy type identity plus the
// plain parameter mapping a worker needs to rebuild the strategy locally.
// Live strategy objects never cross the worker boundary.
type Task struct {
	Name         string
	StrategyType string
	Params       strategy.Params
}

// Result is the outcome of one task: either a metrics bag or an error
// string, plus the execution duration. One task's failure never aborts the
// batch.
type Result struct {
	Name           string
	Success        bool
	Metrics        map[string]float64
	Error          string
	Trades         []*domain.Trade
	DailyPortfolio []analytics.EquityPoint
	Duration       time.Duration
}

// Orchestrator fans a set of strategy configurations out across workers.
// Workers share nothing mutable: the dataset is read-only and each task gets
// its own freshly constructed ledger inside the engine.
type Orchestrator struct {
	workers int
	logger  ports.Logger
	deps    strategy.Deps
	engine  *backtest.Engine
}

// New creates an orchestrator with the given worker count.
func New(workers int, logger ports.Logger, deps strategy.Deps) *Orchestrator {
	return &Orchestrator{
		workers: workers,
		logger:  logger,
		deps:    deps,
		engine:  backtest.New(logger),
	}
}

// RunBatch executes every task against the shared dataset and collects the
// results keyed by strategy name. If the worker pool cannot be initialized
// the batch degrades to a sequential run instead of aborting.
func (o *Orchestrator) RunBatch(ctx context.Context, tasks []Task, ds *domain.Dataset, cfg backtest.RunConfig) map[string]*Result {
	results := make(map[string]*Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	collected, err := o.runParallel(ctx, tasks, ds, cfg)
	if err != nil {
		o.logger.Warn(ctx, "worker pool unavailable, falling back to sequential run",
			map[string]interface{}{"error": err.Error(), "tasks": len(tasks)})
		collected = o.runSequential(ctx, tasks, ds, cfg)
	}

	for _, res := range collected {
		results[res.Name] = res
	}
	return results
}

// runParallel dispatches tasks to a fixed pool of workers feeding a single
// results channel. Collection is the only point needing synchronization.
func (o *Orchestrator) runParallel(ctx context.Context, tasks []Task, ds *domain.Dataset, cfg backtest.RunConfig) ([]*Result, error) {
	if o.workers < 1 {
		return nil, fmt.Errorf("%w: %d workers configured", ports.ErrPoolUnavailable, o.workers)
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan *Result, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- o.runTask(ctx, task, ds, cfg)
			}
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var collected []*Result
	for res := range resultCh {
		collected = append(collected, res)
	}
	return collected, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, tasks []Task, ds *domain.Dataset, cfg backtest.RunConfig) []*Result {
	collected := make([]*Result, 0, len(tasks))
	for _, task := range tasks {
		collected = append(collected, o.runTask(ctx, task, ds, cfg))
	}
	return collected
}

// runTask rebuilds the strategy from its serializable description and runs
// one backtest. Failures of any kind, including panics inside strategy
// code, are contained in the task's own result.
func (o *Orchestrator) runTask(ctx context.Context, task Task, ds *domain.Dataset, cfg backtest.RunConfig) (res *Result) {
	started := time.Now()
	res = &Result{Name: task.Name}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("task panicked: %v", r)
			res.Duration = time.Since(started)
			o.logger.Error(ctx, fmt.Errorf("%w: panic: %v", ports.ErrTaskFailed, r),
				"backtest task panicked", map[string]interface{}{"task": task.Name})
		}
	}()

	strat, err := strategy.Build(task.StrategyType, task.Name, task.Params, o.deps)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(started)
		o.logger.Error(ctx, err, "failed to rebuild strategy for task",
			map[string]interface{}{"task": task.Name, "type": task.StrategyType})
		return res
	}

	runResult, err := o.engine.Run(ctx, strat, ds, cfg)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(started)
		o.logger.Error(ctx, err, "backtest task failed",
			map[string]interface{}{"task": task.Name})
		return res
	}

	res.Success = true
	res.Metrics = runResult.Metrics
	res.Trades = runResult.Trades
	res.DailyPortfolio = runResult.DailyPortfolio
	res.Duration = time.Since(started)
	return res
}
