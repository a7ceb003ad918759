package yarasp_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

var errBoom = errors.New("boom")

// stubClient answers Copyright and Search; every other method panics through
// the nil embedded interface.
type stubClient struct {
	yarasp.Client

	calls   atomic.Int32
	release chan struct{}
}

func (c *stubClient) Copyright(ctx context.Context, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	c.calls.Add(1)

	if c.release != nil {
		<-c.release
	}

	return &yarasp.Result{Endpoint: yarasp.EndpointCopyright, Pages: 1}, nil
}

func (c *stubClient) Search(ctx context.Context, req *yarasp.SearchRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	c.calls.Add(1)

	return nil, errBoom
}

func TestAsync(t *testing.T) {
	t.Parallel()

	future := yarasp.Async(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	<-future.Done()

	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestFuture_WaitCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	future := yarasp.Async(context.Background(), func(ctx context.Context) (string, error) {
		<-release

		return "late", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	value, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, value)
}

func TestAsyncClient(t *testing.T) {
	t.Parallel()

	stub := &stubClient{release: make(chan struct{})}
	async := yarasp.NewAsyncClient(stub)
	ctx := context.Background()

	first := async.Copyright(ctx)
	second := async.Copyright(ctx)

	close(stub.release)

	for _, future := range []*yarasp.Future[*yarasp.Result]{first, second} {
		result, err := future.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, yarasp.EndpointCopyright, result.Endpoint)
	}

	_, err := async.Search(ctx, &yarasp.SearchRequest{}).Wait(ctx)
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Same(t, stub, async.Client())
}
