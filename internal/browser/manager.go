// Package browser owns the headless Chrome process shared by every lookup
// and hands out one tab per request.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/at-ishikawa/vocabox/internal/config"
)

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("browser manager is closed")

// Manager lazily launches a single browser process and opens tabs on it.
// At most cfg.MaxPages tabs are open at the same time; further NewPage calls
// wait for a free slot.
type Manager struct {
	cfg   config.BrowserConfig
	pages *semaphore.Weighted

	mu            sync.Mutex
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewManager creates a Manager. The browser is not started until the first
// Acquire or NewPage call.
func NewManager(cfg config.BrowserConfig) *Manager {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Manager{
		cfg:   cfg,
		pages: semaphore.NewWeighted(int64(maxPages)),
	}
}

func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		// Sandboxing does not work inside most containers.
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(int(m.cfg.ViewportWidth), int(m.cfg.ViewportHeight)),
	)
	if !m.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}
	for _, flag := range m.cfg.ExtraFlags {
		name, value := parseFlag(flag)
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseFlag turns "--name=value" or "name" into a chromedp flag pair.
func parseFlag(flag string) (string, any) {
	flag = strings.TrimLeft(flag, "-")
	name, value, found := strings.Cut(flag, "=")
	if !found {
		return name, true
	}
	return name, value
}

// Acquire returns the browser context, launching the process on first use.
// A failed launch is returned to the caller and retried on the next call.
func (m *Manager) Acquire() (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.browserCtx != nil {
		if err := m.browserCtx.Err(); err != nil {
			return nil, fmt.Errorf("browser process is gone: %w", err)
		}
		return m.browserCtx, nil
	}

	start := time.Now()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp.Run(launch) > %w", err)
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	slog.Default().Info("browser started", "duration", time.Since(start), "max_pages", m.cfg.MaxPages)
	return browserCtx, nil
}

// NewPage opens a tab with the configured viewport and network events
// enabled. The caller owns the page and must Close it.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	if err := m.pages.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for a free page slot: %w", err)
	}

	browserCtx, err := m.Acquire()
	if err != nil {
		m.pages.Release(1)
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	page := newPage(tabCtx, cancel, func() { m.pages.Release(1) })
	page.listen()

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(m.cfg.ViewportWidth, m.cfg.ViewportHeight),
	); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("chromedp.Run(open tab) > %w", err)
	}
	return page, nil
}

// Started reports whether the browser process has been launched.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browserCtx != nil
}

// Ready checks that a launched browser still answers protocol calls.
// A browser that has not been started yet counts as ready.
func (m *Manager) Ready(ctx context.Context) error {
	m.mu.Lock()
	closed, browserCtx := m.closed, m.browserCtx
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if browserCtx == nil {
		return nil
	}
	if err := browserCtx.Err(); err != nil {
		return fmt.Errorf("browser process is gone: %w", err)
	}

	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Browser == nil {
		return errors.New("browser is not attached")
	}
	if _, _, _, _, _, err := browser.GetVersion().Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		return fmt.Errorf("browser.GetVersion() > %w", err)
	}
	return nil
}

// Close terminates the browser process. Calling it more than once is safe.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.browserCtx == nil {
		return nil
	}

	err := chromedp.Cancel(m.browserCtx)
	m.browserCancel()
	m.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("chromedp.Cancel(browser) > %w", err)
	}
	return nil
}
