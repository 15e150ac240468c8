package llm

import (
	"context"
	"sync"
	"time"

	"github.com/tickerpulse/tickerpulse/internal/budget"
	"github.com/tickerpulse/tickerpulse/internal/models"
	"github.com/tickerpulse/tickerpulse/pkg/logger"
)

// BatchStatus is the terminal state of one batch after dispatch.
type BatchStatus string

const (
	// StatusParsed means some model's response merged successfully.
	StatusParsed BatchStatus = "parsed"
	// StatusAbandoned means every configured model was tried (or the budget
	// ran out mid-rotation) without a usable response.
	StatusAbandoned BatchStatus = "abandoned"
	// StatusSkipped means no request was ever issued for the batch, because
	// the budget was exhausted or the run was cancelled first.
	StatusSkipped BatchStatus = "skipped"
)

// BatchResult records how one batch resolved.
type BatchResult struct {
	BatchIndex int
	Status     BatchStatus
	Model      models.ModelDescriptor // model that produced the parsed response
	Attempts   int
}

// Sink consumes a model response for one batch. A non-nil error means the
// response was unusable and the orchestrator rotates to the next model;
// partial-salvage bookkeeping stays inside the sink.
type Sink func(b models.Batch, resp *models.LLMResponse) error

// DispatchStats summarizes a dispatch round.
type DispatchStats struct {
	Parsed    int
	Abandoned int
	Skipped   int
	Attempts  int
}

// Orchestrator drives batches through the model rotation under the request
// budget, with bounded concurrency across independent batches.
type Orchestrator struct {
	client  Client
	tracker *budget.Tracker
	roster  []models.ModelDescriptor
	workers int
	timeout time.Duration
}

// NewOrchestrator creates an orchestrator. The roster is re-sorted by
// priority so retry order is always the static preference list.
func NewOrchestrator(client Client, tracker *budget.Tracker, roster []models.ModelDescriptor, workers int, timeout time.Duration) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		client:  client,
		tracker: tracker,
		roster:  SortByPriority(roster),
		workers: workers,
		timeout: timeout,
	}
}

// Dispatch processes all batches and returns their terminal results, indexed
// like the input. Cancellation lets in-flight batches finish and skips the
// rest; already-merged results stay valid.
func (o *Orchestrator) Dispatch(ctx context.Context, batches []models.Batch, sink Sink) []BatchResult {
	results := make([]BatchResult, len(batches))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.process(ctx, batches[i], sink)
			}
		}()
	}

feed:
	for i := range batches {
		select {
		case <-ctx.Done():
			for j := i; j < len(batches); j++ {
				results[j] = BatchResult{BatchIndex: j, Status: StatusSkipped}
			}
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// process runs the per-batch state machine: PENDING -> SENT(model) ->
// PARSED | FAILED(model), rotating through untried models while the budget
// permits, ending PARSED or ABANDONED.
func (o *Orchestrator) process(ctx context.Context, b models.Batch, sink Sink) BatchResult {
	result := BatchResult{BatchIndex: b.Index, Status: StatusSkipped}

	for _, md := range o.roster {
		if ctx.Err() != nil {
			break
		}

		if !o.tracker.TryReserve(1) {
			logger.L().Warnf("batch %d: budget exhausted after %d attempts", b.Index, result.Attempts)
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		resp, err := o.client.Send(callCtx, b, md)
		cancel()

		// Every issued attempt costs one unit, whatever the outcome.
		o.tracker.Commit(1)
		result.Attempts++

		if err != nil {
			logger.L().Warnf("batch %d: %s failed, rotating: %v", b.Index, md.DisplayName, err)
			result.Status = StatusAbandoned
			continue
		}

		if err := sink(b, resp); err != nil {
			logger.L().Warnf("batch %d: %s response unusable, rotating: %v", b.Index, md.DisplayName, err)
			result.Status = StatusAbandoned
			continue
		}

		result.Status = StatusParsed
		result.Model = md
		return result
	}

	if result.Attempts > 0 {
		result.Status = StatusAbandoned
	}
	return result
}

// Stats tallies dispatch results.
func Stats(results []BatchResult) DispatchStats {
	var s DispatchStats
	for _, r := range results {
		s.Attempts += r.Attempts
		switch r.Status {
		case StatusParsed:
			s.Parsed++
		case StatusAbandoned:
			s.Abandoned++
		default:
			s.Skipped++
		}
	}
	return s
}
