package yarasp

import (
	"context"
	"net/url"
)

// Future is the pending result of a call started with Async.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Async runs fn in its own goroutine. The client and its usage gate are safe
// for concurrent use, so the same accounting applies as for direct calls.
func Async[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	future := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(future.done)

		future.value, future.err = fn(ctx)
	}()

	return future
}

// Done is closed when the call completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call completes or ctx is cancelled. Cancelling ctx
// does not cancel the call itself; use the context passed to Async for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// AsyncClient wraps a Client so every endpoint call returns a Future.
type AsyncClient struct {
	client Client
}

// NewAsyncClient wraps client.
func NewAsyncClient(client Client) *AsyncClient {
	return &AsyncClient{client: client}
}

// Client returns the wrapped synchronous client.
func (a *AsyncClient) Client() Client {
	return a.client
}

// Search starts a search call.
func (a *AsyncClient) Search(ctx context.Context, req *SearchRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Search(ctx, req, opts...)
	})
}

// Schedule starts a schedule call.
func (a *AsyncClient) Schedule(ctx context.Context, req *ScheduleRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Schedule(ctx, req, opts...)
	})
}

// Thread starts a thread call.
func (a *AsyncClient) Thread(ctx context.Context, req *ThreadRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Thread(ctx, req, opts...)
	})
}

// NearestStations starts a nearest_stations call.
func (a *AsyncClient) NearestStations(ctx context.Context, req *NearestStationsRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.NearestStations(ctx, req, opts...)
	})
}

// NearestSettlement starts a nearest_settlement call.
func (a *AsyncClient) NearestSettlement(ctx context.Context, req *NearestSettlementRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.NearestSettlement(ctx, req, opts...)
	})
}

// Carrier starts a carrier call.
func (a *AsyncClient) Carrier(ctx context.Context, req *CarrierRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Carrier(ctx, req, opts...)
	})
}

// StationsList starts a stations_list call.
func (a *AsyncClient) StationsList(ctx context.Context, req *StationsListRequest, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.StationsList(ctx, req, opts...)
	})
}

// Copyright starts a copyright call.
func (a *AsyncClient) Copyright(ctx context.Context, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Copyright(ctx, opts...)
	})
}

// Get starts a call to any endpoint.
func (a *AsyncClient) Get(ctx context.Context, endpoint Endpoint, params url.Values, opts ...CallOption) *Future[*Result] {
	return Async(ctx, func(ctx context.Context) (*Result, error) {
		return a.client.Get(ctx, endpoint, params, opts...)
	})
}
