package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Response is a network response observed on a page after its body finished
// loading.
type Response struct {
	URL      string
	Status   int
	Document bool
	// Body fetches the response body from the browser.
	Body func() ([]byte, error)
}

// Page is a single browser tab. Handlers registered with OnResponse and
// OnError are called from their own goroutines.
type Page struct {
	ctx       context.Context
	cancel    context.CancelFunc
	release   func()
	closeOnce sync.Once
	closeErr  error

	mu           sync.Mutex
	received     map[network.RequestID]*network.EventResponseReceived
	inflight     int
	lastActivity time.Time
	onResponse   []func(Response)
	onError      []func(error)
}

func newPage(ctx context.Context, cancel context.CancelFunc, release func()) *Page {
	return &Page{
		ctx:          ctx,
		cancel:       cancel,
		release:      release,
		received:     make(map[network.RequestID]*network.EventResponseReceived),
		lastActivity: time.Now(),
	}
}

func (p *Page) listen() {
	chromedp.ListenTarget(p.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			p.mu.Lock()
			p.inflight++
			p.lastActivity = time.Now()
			p.mu.Unlock()

		case *network.EventResponseReceived:
			p.mu.Lock()
			p.received[e.RequestID] = e
			p.mu.Unlock()

		case *network.EventLoadingFinished:
			p.mu.Lock()
			received, ok := p.received[e.RequestID]
			delete(p.received, e.RequestID)
			p.settle()
			p.mu.Unlock()
			if !ok || received.Response == nil {
				return
			}
			resp := Response{
				URL:      received.Response.URL,
				Status:   int(received.Response.Status),
				Document: received.Type == network.ResourceTypeDocument,
				Body:     p.bodyFunc(e.RequestID),
			}
			go p.emitResponse(resp)

		case *network.EventLoadingFailed:
			p.mu.Lock()
			delete(p.received, e.RequestID)
			p.settle()
			p.mu.Unlock()
			if e.Type == network.ResourceTypeDocument && !e.Canceled {
				go p.emitError(fmt.Errorf("load document: %s", e.ErrorText))
			}

		case *inspector.EventTargetCrashed:
			go p.emitError(errors.New("page crashed"))

		case *inspector.EventDetached:
			go p.emitError(fmt.Errorf("page detached: %s", e.Reason))
		}
	})
}

// settle must be called with p.mu held.
func (p *Page) settle() {
	if p.inflight > 0 {
		p.inflight--
	}
	p.lastActivity = time.Now()
}

func (p *Page) bodyFunc(id network.RequestID) func() ([]byte, error) {
	return func() ([]byte, error) {
		var body []byte
		err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(id).Do(ctx)
			return err
		}))
		if err != nil {
			return nil, fmt.Errorf("network.GetResponseBody(%s) > %w", id, err)
		}
		return body, nil
	}
}

func (p *Page) emitResponse(resp Response) {
	p.mu.Lock()
	handlers := append([]func(Response){}, p.onResponse...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(resp)
	}
}

func (p *Page) emitError(err error) {
	p.mu.Lock()
	handlers := append([]func(error){}, p.onError...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

// OnResponse registers a handler for every completed network response.
func (p *Page) OnResponse(h func(Response)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResponse = append(p.onResponse, h)
}

// OnError registers a handler for page-level failures such as a crash.
func (p *Page) OnError(h func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = append(p.onError, h)
}

// Navigate loads url and returns the document's HTTP status.
// If ctx ends first, the page is closed.
func (p *Page) Navigate(ctx context.Context, url string) (int, error) {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	resp, err := chromedp.RunResponse(p.ctx, chromedp.Navigate(url))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("chromedp.RunResponse(%s) > %w", url, err)
	}
	if resp == nil {
		return 0, errors.New("navigation produced no document response")
	}
	return int(resp.Status), nil
}

// Hover moves the mouse to the centre of the first element matching selector.
func (p *Page) Hover(ctx context.Context, selector string) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	return chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("chromedp.Nodes(%s) > %w", selector, err)
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches %s", selector)
		}
		box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("dom.GetBoxModel() > %w", err)
		}
		x, y := center(box.Content)
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func center(quad dom.Quad) (float64, float64) {
	if len(quad) < 8 {
		return 0, 0
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += quad[i]
		y += quad[i+1]
	}
	return x / 4, y / 4
}

// Click clicks the first element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	if err := chromedp.Run(p.ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("chromedp.Click(%s) > %w", selector, err)
	}
	return nil
}

const minIdlePoll = 10 * time.Millisecond

// WaitIdle blocks until no request has been in flight for quiet. A quiet
// period of zero or less only waits for in-flight requests to finish.
func (p *Page) WaitIdle(ctx context.Context, quiet time.Duration) error {
	ticker := time.NewTicker(max(quiet/4, minIdlePoll))
	defer ticker.Stop()
	for {
		p.mu.Lock()
		idle := p.inflight == 0 && time.Since(p.lastActivity) >= quiet
		p.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-ticker.C:
		}
	}
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp.OuterHTML() > %w", err)
	}
	return html, nil
}

// Close closes the tab and frees its slot. Only the first call has any
// effect; later calls return the first call's result.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		if chromedp.FromContext(p.ctx) != nil {
			if err := chromedp.Cancel(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.closeErr = fmt.Errorf("chromedp.Cancel(tab) > %w", err)
			}
		}
		p.cancel()
		if p.release != nil {
			p.release()
		}
	})
	return p.closeErr
}

// Evaluate runs a JavaScript expression in the page and decodes its result
// into res, which may be nil.
func (p *Page) Evaluate(ctx context.Context, expression string, res any) error {
	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	if err := chromedp.Run(p.ctx, chromedp.Evaluate(expression, res)); err != nil {
		return fmt.Errorf("chromedp.Evaluate() > %w", err)
	}
	return nil
}
