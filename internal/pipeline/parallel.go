package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                      // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback         // Optional progress reporting
	ErrorHandler     func(int, string, error) // Optional per-file error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxWorkers:       runtime.NumCPU(),
		ProgressCallback: nil,
		ErrorHandler:     nil,
	}
}

type fileJob struct {
	index int
	path  string
}

type fileResult struct {
	index  int
	result *ScanImageResult
	err    error
}

// ProcessFiles scans files using the pipeline's parallel configuration.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string, frame Frame) ([]*ScanImageResult, error) {
	return p.ProcessFilesParallel(ctx, paths, frame, p.cfg.Parallel)
}

// ProcessFilesParallel scans files with a worker pool. Results are returned
// in input order; a file that failed has a result with only Path and Error
// set, and the first failure is also returned as the error.
func (p *Pipeline) ProcessFilesParallel(ctx context.Context, paths []string, frame Frame, config ParallelConfig) ([]*ScanImageResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	if p == nil || p.Backend == nil || p.Engine == nil {
		return nil, errors.New("pipeline not initialized")
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	if config.MaxWorkers > len(paths) {
		config.MaxWorkers = len(paths)
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(paths))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan fileJob, len(paths))
	results := make(chan fileResult, len(paths))

	var wg sync.WaitGroup
	for range config.MaxWorkers {
		wg.Add(1)
		go p.worker(ctx, frame, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case jobs <- fileJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	resultMap := make(map[int]*ScanImageResult, len(paths))
	errorMap := make(map[int]error)
	processedCount := 0

	for result := range results {
		resultMap[result.index] = result.result
		if result.err != nil {
			errorMap[result.index] = result.err
			if config.ProgressCallback != nil {
				config.ProgressCallback.OnError(result.index, result.err)
			}
		}
		processedCount++

		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(processedCount, len(paths))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*ScanImageResult, len(paths))
	var firstError error
	for i, path := range paths {
		if err := errorMap[i]; err != nil {
			if firstError == nil {
				firstError = fmt.Errorf("file %d: %w", i, err)
			}
			if config.ErrorHandler != nil {
				config.ErrorHandler(i, path, err)
			}
			ordered[i] = &ScanImageResult{Path: path, Error: err.Error()}
			continue
		}
		ordered[i] = resultMap[i]
	}

	return ordered, firstError
}

// worker scans files from the jobs channel.
func (p *Pipeline) worker(
	ctx context.Context,
	frame Frame,
	jobs <-chan fileJob,
	results chan<- fileResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}

			result, err := p.ProcessFile(ctx, job.path, frame)

			select {
			case results <- fileResult{index: job.index, result: result, err: err}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
