// Package batch runs the grid-fit pipeline over many catalog files in
// parallel. Runs are independent: each worker owns its own pipeline
// state and writes a uniquely named output file, so no locking is
// needed beyond the job channels.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
)

// Run discovers catalog files from args and processes them with a
// worker pool. Results come back in input order. Unless
// cfg.ContinueOnError is set, the first per-file failure aborts the
// batch.
func Run(ctx context.Context, args []string, cfg Config) (*Result, error) {
	files, err := discoverCatalogFiles(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("discover catalog files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no catalog files found")
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	workers := clampWorkers(cfg.Workers)
	slog.Info("starting batch grid fit", "files", len(files), "workers", workers)

	start := time.Now()
	results := processParallel(ctx, files, cfg, workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}
	if !cfg.ContinueOnError {
		for _, f := range results {
			if f.Err != nil {
				return res, fmt.Errorf("%s: %w", f.Input, f.Err)
			}
		}
	}
	return res, nil
}

// clampWorkers keeps the pool within (available cores - 1), always at
// least one worker.
func clampWorkers(requested int) int {
	limit := runtime.NumCPU() - 1
	if limit < 1 {
		limit = 1
	}
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

type fileJob struct {
	index int
	path  string
}

type fileOutcome struct {
	index  int
	result FileResult
}

// processParallel fans the files out over a worker pool and collects
// the results in input order.
func processParallel(ctx context.Context, files []string, cfg Config, workers int) []FileResult {
	jobs := make(chan fileJob, len(files))
	outcomes := make(chan fileOutcome, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, jobs, outcomes, &wg, cfg)
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- fileJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]FileResult, len(files))
	for i, path := range files {
		results[i] = FileResult{Input: path}
	}
	for outcome := range outcomes {
		results[outcome.index] = outcome.result
	}
	return results
}

// worker processes catalog files from the jobs channel.
func worker(ctx context.Context, jobs <-chan fileJob, outcomes chan<- fileOutcome, wg *sync.WaitGroup, cfg Config) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			result := RunOne(job.path, cfg)
			logResult(result)
			select {
			case outcomes <- fileOutcome{index: job.index, result: result}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func logResult(r FileResult) {
	switch {
	case r.Err != nil:
		slog.Error("grid fit failed", "file", r.Input, "error", r.Err)
	case r.Warning != "":
		slog.Warn("grid fit accepted without convergence",
			"file", r.Input, "warning", r.Warning, "matched", r.Matched)
	default:
		slog.Info("grid fit complete", "file", r.Input, "output", r.Output,
			"matched", r.Matched, "duration", r.Duration.Round(time.Millisecond))
	}
}
