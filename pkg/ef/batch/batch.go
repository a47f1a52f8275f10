// Package batch runs many independent EF problems concurrently using
// internal/parallel's worker pool, matching the concurrency model of
// section 5: parallelism is only ever across whole EF instances, never
// inside the single-threaded cooperative CEGIS loop of one instance.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/efcore/bvef/internal/parallel"
	"github.com/efcore/bvef/pkg/ef"
)

// Job names one Problem within a batch, for error reporting and result
// lookup.
type Job struct {
	Name    string
	Problem ef.Problem
	Options []ef.Option
}

// Outcome pairs a Job's name with its Driver result.
type Outcome struct {
	Name   string
	Result ef.Result
	Err    error
}

// Stats reports how a batch used its shared worker pool: the pool's
// execution statistics, and any deadlock alerts raised while jobs were
// running, so a caller batching many long solves can distinguish a
// wedged job from a merely slow one.
type Stats struct {
	Execution parallel.ExecutionStats
	Alerts    []parallel.DeadlockAlert
}

// Run solves every job in jobs concurrently over a worker pool bounded
// by workers, returning one Outcome per job (same order as input)
// alongside the pool's Stats. Individual job failures are collected into
// a *multierror.Error rather than aborting the batch, so that one
// malformed or resource-exhausted instance doesn't hide results from the
// rest (section 7, "errors should not take down independent work").
//
// Every job is registered with the pool's deadlock detector for the
// duration of its Solve call; jobs are not wrapped in
// ExecuteWithDeadlockProtection, since that helper imposes its own
// timeout on the wrapped call, and a batch caller's -max-refinements /
// -timeout options (not this package's) are the intended way to bound a
// job's runtime.
func Run(ctx context.Context, jobs []Job, workers int) ([]Outcome, Stats, error) {
	pool := parallel.NewWorkerPool(workers)
	dd := pool.GetDeadlockDetector()

	outcomes := make([]Outcome, len(jobs))
	var (
		mu       sync.Mutex
		combined *multierror.Error
	)

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		taskID := strconv.Itoa(i)
		submitErr := pool.Submit(ctx, func() {
			defer wg.Done()
			dd.RegisterTask(taskID, job.Name)
			defer dd.UnregisterTask(taskID)

			driver := ef.NewDriver(job.Problem, job.Options...)
			res, err := driver.Solve(ctx)
			outcomes[i] = Outcome{Name: job.Name, Result: res, Err: err}
			if err != nil {
				mu.Lock()
				combined = multierror.Append(combined, fmt.Errorf("job %q: %w", job.Name, err))
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			outcomes[i] = Outcome{Name: job.Name, Err: submitErr}
			mu.Lock()
			combined = multierror.Append(combined, fmt.Errorf("job %q: submit: %w", job.Name, submitErr))
			mu.Unlock()
		}
	}
	wg.Wait()

	alerts := drainAlerts(dd.GetAlerts())
	pool.Shutdown()
	stats := Stats{Execution: pool.GetStats().GetStats(), Alerts: alerts}

	if combined != nil {
		return outcomes, stats, combined.ErrorOrNil()
	}
	return outcomes, stats, nil
}

// drainAlerts collects every deadlock alert raised so far without
// blocking: DeadlockDetector.Shutdown never closes its alert channel, so
// a draining range over GetAlerts would hang forever once the pool is
// done.
func drainAlerts(ch <-chan parallel.DeadlockAlert) []parallel.DeadlockAlert {
	var alerts []parallel.DeadlockAlert
	for {
		select {
		case a := <-ch:
			alerts = append(alerts, a)
		default:
			return alerts
		}
	}
}
