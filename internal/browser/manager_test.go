package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/vocabox/internal/config"
)

func testBrowserConfig() config.BrowserConfig {
	return config.BrowserConfig{
		Headless:       true,
		MaxPages:       2,
		ViewportWidth:  600,
		ViewportHeight: 600,
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		flag      string
		wantName  string
		wantValue any
	}{
		{flag: "--disable-dev-shm-usage", wantName: "disable-dev-shm-usage", wantValue: true},
		{flag: "lang=en-US", wantName: "lang", wantValue: "en-US"},
		{flag: "--proxy-server=http://proxy:3128", wantName: "proxy-server", wantValue: "http://proxy:3128"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			name, value := parseFlag(tt.flag)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestManager_AllocatorOptions(t *testing.T) {
	cfg := testBrowserConfig()
	base := len(NewManager(cfg).allocatorOptions())

	cfg.ExecPath = "/usr/bin/chromium"
	cfg.UserAgent = "vocabox-test"
	cfg.ExtraFlags = []string{"disable-dev-shm-usage", "lang=en-US"}
	cfg.Headless = false
	assert.Equal(t, base+5, len(NewManager(cfg).allocatorOptions()))
}

func TestManager_NotStarted(t *testing.T) {
	m := NewManager(testBrowserConfig())

	assert.False(t, m.Started())
	assert.NoError(t, m.Ready(context.Background()))
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close(), "second close is a no-op")
	assert.ErrorIs(t, m.Ready(context.Background()), ErrClosed)

	_, err := m.Acquire()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_NewPageAfterClose(t *testing.T) {
	m := NewManager(testBrowserConfig())
	require.NoError(t, m.Close())

	_, err := m.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// The slot taken by the failed call is returned.
	assert.True(t, m.pages.TryAcquire(2))
}

func TestManager_NewPageWaitsForFreeSlot(t *testing.T) {
	m := NewManager(testBrowserConfig())
	require.True(t, m.pages.TryAcquire(2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.NewPage(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for a free page slot")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, m.Started())
}
