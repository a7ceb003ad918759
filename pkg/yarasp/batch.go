package yarasp

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/yarasp/yarasp-go/internal/constants"
)

// BatchOperation is a single endpoint call in a batch.
type BatchOperation struct {
	ID       string
	Endpoint Endpoint
	Params   url.Values
	Options  []CallOption
	Callback func(result *BatchResult)
}

// BatchResult is the outcome of one BatchOperation.
type BatchResult struct {
	ID       string
	Success  bool
	Result   *Result
	Error    error
	Duration time.Duration
}

// BatchExecutor runs endpoint calls concurrently through one client, so all
// of them share its cache and daily usage gate. Once the limit is reached
// the remaining live calls fail with a LimitExceededError while cached ones
// still succeed.
type BatchExecutor struct {
	client      EndpointClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates an executor running at most concurrency calls at
// once. Zero or less selects the default.
func NewBatchExecutor(client EndpointClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout bounds each operation, including all of its pages.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs operations and returns their results in input order.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) []BatchResult {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result, err := b.client.Get(opCtx, operation.Endpoint, operation.Params, operation.Options...)

			results[index] = BatchResult{
				ID:       operation.ID,
				Success:  err == nil,
				Result:   result,
				Error:    err,
				Duration: time.Since(start),
			}

			if operation.Callback != nil {
				operation.Callback(&results[index])
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results
}

// BatchBuilder collects operations for a BatchExecutor.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates an empty builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{operations: make([]BatchOperation, 0)}
}

// Add appends a raw endpoint call.
func (b *BatchBuilder) Add(id string, endpoint Endpoint, params url.Values, opts ...CallOption) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Endpoint: endpoint,
		Params:   params,
		Options:  opts,
	})

	return b
}

// AddSearch appends a search call.
func (b *BatchBuilder) AddSearch(id string, req *SearchRequest, opts ...CallOption) *BatchBuilder {
	return b.Add(id, EndpointSearch, req.Values(), opts...)
}

// AddSchedule appends a schedule call.
func (b *BatchBuilder) AddSchedule(id string, req *ScheduleRequest, opts ...CallOption) *BatchBuilder {
	return b.Add(id, EndpointSchedule, req.Values(), opts...)
}

// AddThread appends a thread call.
func (b *BatchBuilder) AddThread(id string, req *ThreadRequest, opts ...CallOption) *BatchBuilder {
	return b.Add(id, EndpointThread, req.Values(), opts...)
}

// WithCallback sets the callback of the most recently added operation.
func (b *BatchBuilder) WithCallback(callback func(result *BatchResult)) *BatchBuilder {
	if len(b.operations) > 0 {
		b.operations[len(b.operations)-1].Callback = callback
	}

	return b
}

// Build returns the collected operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
