// Package worker runs bounded batches of independent jobs on a fixed
// number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/leadscore/pkg/logger"
)

// Job is one unit of work. Jobs must be safe to run concurrently with each
// other.
type Job func(ctx context.Context) error

// Pool executes jobs with at most size running at once.
type Pool struct {
	size   int
	name   string
	logger logger.Logger
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithName sets the pool name used in log lines.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPool creates a pool with size workers. A size below one uses the
// number of CPUs.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{size: size, name: "worker"}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Run executes every job and waits for them to finish. Jobs not yet started
// when ctx is canceled are skipped. The returned error joins every job
// error and the context error, if any.
func (p *Pool) Run(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	workers := p.size
	if workers > len(jobs) {
		workers = len(jobs)
	}

	start := time.Now()
	queue := make(chan int)
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if err := jobs[idx](ctx); err != nil {
					errs[idx] = fmt.Errorf("job %d: %w", idx, err)
				}
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case queue <- i:
		}
	}
	close(queue)
	wg.Wait()

	p.logger.Debug(ctx, "pool run finished",
		logger.Int("jobs", len(jobs)),
		logger.Int("workers", workers),
		logger.Duration("elapsed", time.Since(start)),
	)

	if ctxErr != nil {
		errs = append(errs, ctxErr)
	}
	return errors.Join(errs...)
}
