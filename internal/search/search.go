// Package search sweeps the factor-backtest parameter grid, running the
// platform once per grid point and collecting IC results into a CSV
// report.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"qdt/internal/backtest"
	"qdt/internal/logging"
	"qdt/internal/progress"
)

// saveEvery is how many completed tasks trigger an intermediate CSV save.
const saveEvery = 10

// Params configures a search run.
type Params struct {
	FromTS       int64
	ToTS         int64
	MarketType   string
	Symbol       string
	DataTypes    []string
	Intervals    []string // kline tasks only
	WindowSizes  []int
	StepMS       []int
	ForwardSteps []int
	Output       string
	Workers      int
}

// Result is one grid point's outcome, flattened the way the CSV report
// stores it. IC and Records are meaningful only for success rows.
type Result struct {
	DataType     string  `json:"data_type"`
	FactorType   string  `json:"factor_type"`
	Interval     string  `json:"interval,omitempty"`
	WindowSize   int     `json:"window_size"`
	StepMS       int     `json:"step_ms"`
	ForwardSteps int     `json:"forward_steps"`
	MarketType   string  `json:"market_type"`
	Symbol       string  `json:"symbol"`
	IC           float64 `json:"ic"`
	Records      int64   `json:"records"`
	Status       string  `json:"status"`
	ErrMsg       string  `json:"error_message,omitempty"`
}

// Summary reports the outcome of one search run.
type Summary struct {
	RunID           string   `json:"run_id"`
	Total           int      `json:"total"`
	Success         int      `json:"success"`
	Failed          int      `json:"failed"`
	Errors          int      `json:"errors"`
	DurationSeconds float64  `json:"duration_seconds"`
	Top             []Result `json:"top,omitempty"`
}

// TaskRunner runs one backtest task. *backtest.Runner satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, task backtest.Task, p backtest.Params) backtest.Outcome
}

// Searcher drives a search run over a TaskRunner.
type Searcher struct {
	runner   TaskRunner
	log      *logging.Logger
	progress *progress.Tracker
}

// New creates a Searcher. The progress tracker may be nil.
func New(runner TaskRunner, log *logging.Logger, prog *progress.Tracker) *Searcher {
	if log == nil {
		log = logging.Default()
	}
	return &Searcher{runner: runner, log: log, progress: prog}
}

// GenerateTasks expands the search grid in a stable order: data type,
// window size, step, forward steps, factor, then interval. Trade tasks
// carry no interval.
func GenerateTasks(p Params) []backtest.Task {
	var tasks []backtest.Task
	for _, dataType := range p.DataTypes {
		factors := TradeFactors
		if dataType == "kline" {
			factors = KlineFactors
		}
		for _, window := range p.WindowSizes {
			for _, step := range p.StepMS {
				for _, forward := range p.ForwardSteps {
					for _, factor := range factors {
						if dataType != "kline" {
							tasks = append(tasks, backtest.Task{
								DataType:     dataType,
								FactorType:   factor,
								WindowSize:   window,
								StepMS:       step,
								ForwardSteps: forward,
							})
							continue
						}
						for _, interval := range p.Intervals {
							tasks = append(tasks, backtest.Task{
								DataType:     dataType,
								FactorType:   factor,
								Interval:     interval,
								WindowSize:   window,
								StepMS:       step,
								ForwardSteps: forward,
							})
						}
					}
				}
			}
		}
	}
	return tasks
}

// Run executes every task in the grid and writes the CSV report. Results
// keep task order no matter how tasks interleave; the report is also
// saved every few completed tasks so a long sweep can be inspected (or
// salvaged) mid-run.
func (s *Searcher) Run(ctx context.Context, p Params) (*Summary, error) {
	tasks := GenerateTasks(p)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("search grid is empty")
	}

	bp := backtest.Params{
		FromTS:     p.FromTS,
		ToTS:       p.ToTS,
		MarketType: p.MarketType,
		Symbol:     p.Symbol,
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	s.log.Info("Total tasks to run: %d", len(tasks))
	if s.progress != nil {
		s.progress.SetTotal(int64(len(tasks)))
	}

	start := time.Now()
	results := make([]Result, len(tasks))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

loop:
	for i, task := range tasks {
		select {
		case <-ctx.Done():
			break loop
		default:
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)
		go func(i int, task backtest.Task) {
			defer wg.Done()
			defer func() { <-sem }()

			s.log.Info("[%d/%d] Processing %s - %s", i+1, len(tasks), task.DataType, task.FactorType)
			out := s.runner.Run(ctx, task, bp)
			if out.Status == backtest.StatusSuccess {
				s.log.Info("  IC: %.6f, Records: %d", out.IC, out.Records)
			} else {
				s.log.Warn("  %s: %s", out.Status, out.ErrMsg)
			}
			if s.progress != nil {
				s.progress.Add(1)
			}

			mu.Lock()
			results[i] = newResult(task, p, out)
			done++
			if done%saveEvery == 0 {
				if err := WriteCSV(p.Output, finished(results)); err != nil {
					s.log.Warn("Saving intermediate results: %v", err)
				}
			}
			mu.Unlock()
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		if werr := WriteCSV(p.Output, finished(results)); werr != nil {
			s.log.Warn("Saving partial results: %v", werr)
		}
		return nil, err
	}

	if err := WriteCSV(p.Output, results); err != nil {
		return nil, fmt.Errorf("saving results: %w", err)
	}
	s.log.Info("Results saved to %s", p.Output)

	if s.progress != nil {
		s.progress.Finish()
	}

	sum := s.summarize(results)
	sum.RunID = uuid.NewString()
	sum.DurationSeconds = time.Since(start).Seconds()
	return sum, nil
}

func newResult(task backtest.Task, p Params, out backtest.Outcome) Result {
	return Result{
		DataType:     task.DataType,
		FactorType:   task.FactorType,
		Interval:     task.Interval,
		WindowSize:   task.WindowSize,
		StepMS:       task.StepMS,
		ForwardSteps: task.ForwardSteps,
		MarketType:   p.MarketType,
		Symbol:       p.Symbol,
		IC:           out.IC,
		Records:      out.Records,
		Status:       out.Status,
		ErrMsg:       out.ErrMsg,
	}
}

// summarize counts statuses and logs the top results by absolute IC.
func (s *Searcher) summarize(results []Result) *Summary {
	sum := &Summary{Total: len(results)}
	var successes []Result
	for _, r := range results {
		switch r.Status {
		case backtest.StatusSuccess:
			sum.Success++
			successes = append(successes, r)
		case backtest.StatusFailed:
			sum.Failed++
		case backtest.StatusError:
			sum.Errors++
		}
	}

	s.log.Info("Search summary: success=%d failed=%d error=%d",
		sum.Success, sum.Failed, sum.Errors)

	sort.Slice(successes, func(i, j int) bool {
		return math.Abs(successes[i].IC) > math.Abs(successes[j].IC)
	})
	if len(successes) > 10 {
		successes = successes[:10]
	}
	sum.Top = successes

	if len(successes) > 0 {
		s.log.Info("Top %d IC values (absolute):", len(successes))
		for i, r := range successes {
			interval := ""
			if r.Interval != "" {
				interval = ", interval=" + r.Interval
			}
			s.log.Info("  %d. %s/%s%s, ws=%d, fs=%d -> IC: %.6f",
				i+1, r.DataType, r.FactorType, interval, r.WindowSize, r.ForwardSteps, r.IC)
		}
	}
	return sum
}
