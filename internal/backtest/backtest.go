// Package backtest runs the research platform executable for single
// factor-backtest tasks and scrapes each outcome from the log file the
// platform writes to its working directory.
package backtest

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"qdt/internal/logging"
)

// Task identifies one factor backtest in the search grid.
type Task struct {
	DataType     string
	FactorType   string
	Interval     string // kline tasks only
	WindowSize   int
	StepMS       int
	ForwardSteps int
}

// Params carries the market scope shared by every task in a run.
type Params struct {
	FromTS     int64
	ToTS       int64
	MarketType string
	Symbol     string
}

// Outcome statuses. A failed backtest is a finding, not a fault, so
// outcomes are data rather than Go errors.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Outcome is the result of one platform invocation.
type Outcome struct {
	Records int64
	IC      float64
	Status  string
	ErrMsg  string
}

// LogFileName is the file the platform writes into its working directory.
const LogFileName = "platform_factor_backtest.log"

// resultLine matches the platform's completion line, e.g.
// "factor backtest finished, records: 123, IC: 0.123456".
var resultLine = regexp.MustCompile(`factor backtest finished, records: (\d+), IC: ([-\d.]+)`)

// Runner invokes the platform executable.
type Runner struct {
	PlatformPath string
	Timeout      time.Duration
	Log          *logging.Logger
}

// NewRunner creates a Runner. A non-positive timeout defaults to one hour
// per task.
func NewRunner(platformPath string, timeout time.Duration, log *logging.Logger) *Runner {
	if timeout <= 0 {
		timeout = time.Hour
	}
	if log == nil {
		log = logging.Default()
	}
	return &Runner{PlatformPath: platformPath, Timeout: timeout, Log: log}
}

// BuildArgs returns the platform argument list for task. The interval
// flag is passed only for kline tasks.
func BuildArgs(task Task, p Params) []string {
	args := []string{
		"--command", "factor_backtest",
		"--from_ts", strconv.FormatInt(p.FromTS, 10),
		"--to_ts", strconv.FormatInt(p.ToTS, 10),
		"--data_type", task.DataType,
		"--factor_type", task.FactorType,
		"--window_size", strconv.Itoa(task.WindowSize),
		"--market_type", p.MarketType,
		"--symbol", p.Symbol,
		"--step_ms", strconv.Itoa(task.StepMS),
		"--forward_steps", strconv.Itoa(task.ForwardSteps),
	}
	if task.DataType == "kline" && task.Interval != "" {
		args = append(args, "--interval", task.Interval)
	}
	return args
}

// Run executes one backtest and parses the platform log for the result.
// Each task gets its own scratch working directory, which also guarantees
// the parsed log can never be a stale one from an earlier task. A
// non-zero platform exit is not itself an error: the log decides.
func (r *Runner) Run(ctx context.Context, task Task, p Params) Outcome {
	workDir, err := os.MkdirTemp("", "qdt-backtest-*")
	if err != nil {
		return Outcome{Status: StatusError, ErrMsg: "creating work dir: " + err.Error()}
	}
	defer os.RemoveAll(workDir)

	// The platform path is usually relative to where qdt was started,
	// not to the scratch dir the platform runs in.
	platform, err := filepath.Abs(r.PlatformPath)
	if err != nil {
		return Outcome{Status: StatusError, ErrMsg: "resolving platform path: " + err.Error()}
	}

	args := BuildArgs(task, p)
	timeoutCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, platform, args...)
	cmd.Dir = workDir

	r.Log.Debug("Running: %s %s", platform, strings.Join(args, " "))

	runErr := cmd.Run()
	if ctxErr := timeoutCtx.Err(); ctxErr != nil {
		msg := "timeout"
		if errors.Is(ctxErr, context.Canceled) {
			msg = "canceled"
		}
		return Outcome{Status: StatusError, ErrMsg: msg}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Outcome{Status: StatusError, ErrMsg: runErr.Error()}
		}
	}

	return ParseLog(filepath.Join(workDir, LogFileName))
}

// ParseLog reads a platform log and extracts the records and IC from its
// completion line.
func ParseLog(path string) Outcome {
	content, err := os.ReadFile(path)
	if err != nil {
		return Outcome{Status: StatusFailed, ErrMsg: "log file not found"}
	}
	m := resultLine.FindSubmatch(content)
	if m == nil {
		return Outcome{Status: StatusFailed, ErrMsg: "could not parse IC from log"}
	}
	records, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return Outcome{Status: StatusFailed, ErrMsg: "could not parse IC from log"}
	}
	ic, err := strconv.ParseFloat(string(m[2]), 64)
	if err != nil {
		return Outcome{Status: StatusFailed, ErrMsg: "could not parse IC from log"}
	}
	return Outcome{Records: records, IC: ic, Status: StatusSuccess}
}
