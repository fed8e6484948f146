package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_CloseIsIdempotent(t *testing.T) {
	var released atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := newPage(ctx, cancel, func() { released.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Close())
		}()
	}
	wg.Wait()

	assert.NoError(t, p.Close())
	assert.Equal(t, int32(1), released.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestPage_Handlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newPage(ctx, cancel, nil)
	defer p.Close()

	var gotResponses []string
	var gotErrors []error
	p.OnResponse(func(r Response) { gotResponses = append(gotResponses, r.URL) })
	p.OnResponse(func(r Response) { gotResponses = append(gotResponses, r.URL+"#2") })
	p.OnError(func(err error) { gotErrors = append(gotErrors, err) })

	p.emitResponse(Response{URL: "https://example.com/a"})
	p.emitError(errors.New("page crashed"))

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/a#2"}, gotResponses)
	require.Len(t, gotErrors, 1)
	assert.EqualError(t, gotErrors[0], "page crashed")
}

func TestPage_WaitIdle(t *testing.T) {
	t.Run("returns once the network is quiet", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := newPage(ctx, cancel, nil)
		defer p.Close()

		require.NoError(t, p.WaitIdle(context.Background(), 20*time.Millisecond))
	})

	t.Run("zero quiet period returns on an idle page", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := newPage(ctx, cancel, nil)
		defer p.Close()

		require.NoError(t, p.WaitIdle(context.Background(), 0))
	})

	t.Run("zero quiet period still waits for requests in flight", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := newPage(ctx, cancel, nil)
		defer p.Close()
		p.inflight = 1

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer waitCancel()
		assert.ErrorIs(t, p.WaitIdle(waitCtx, 0), context.DeadlineExceeded)
	})

	t.Run("waits while requests are in flight", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := newPage(ctx, cancel, nil)
		defer p.Close()
		p.inflight = 1

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer waitCancel()
		assert.ErrorIs(t, p.WaitIdle(waitCtx, 10*time.Millisecond), context.DeadlineExceeded)
	})
}

func TestCenter(t *testing.T) {
	x, y := center(dom.Quad{10, 20, 30, 20, 30, 40, 10, 40})
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 30.0, y)

	x, y = center(dom.Quad{1, 2})
	assert.Zero(t, x)
	assert.Zero(t, y)
}
