package imagesearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/vocabox/internal/config"
)

const (
	png  = "data:image/png;base64,iVBORw0KGgo="
	jpeg = "data:image/jpeg;base64,/9j/4AAQ"
	gif  = "data:image/gif;base64,R0lGODlh"
)

func TestExtract(t *testing.T) {
	html := `<html><body>
		<img src="` + png + `" data-rendered-width="120">
		<img src="` + gif + `" data-rendered-width="120">
		<img src="https://images.example/apple.png" data-rendered-width="300">
		<img src="` + jpeg + `" data-rendered-width="50">
		<img src="` + jpeg + `" width="64">
		<img src="` + png + `">
		<img src="` + jpeg + `" data-rendered-width="51">
	</body></html>`

	tests := []struct {
		name   string
		amount int
		want   []string
	}{
		{name: "all matching images", amount: 10, want: []string{png, jpeg, jpeg}},
		{name: "stops at amount", amount: 2, want: []string{png, jpeg}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(html, tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakePage struct {
	status      int
	navigateErr error
	html        string

	navigated string
	clicked   string
	closed    int
}

func (p *fakePage) Navigate(ctx context.Context, url string) (int, error) {
	p.navigated = url
	return p.status, p.navigateErr
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.clicked = selector
	return nil
}

func (p *fakePage) WaitIdle(ctx context.Context, quiet time.Duration) error {
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, expression string, res any) error {
	if n, ok := res.(*int); ok {
		*n = 1
	}
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

func TestSearcher_Search(t *testing.T) {
	cfg := config.ImageSearchConfig{
		URLTemplate:    "https://images.example/search?q={query}",
		Amount:         1,
		SubmitSelector: "button[type=submit]",
	}
	results := `<img src="` + png + `" data-rendered-width="100"><img src="` + jpeg + `" data-rendered-width="100">`

	tests := []struct {
		name    string
		cfg     config.ImageSearchConfig
		page    *fakePage
		amount  int
		want    []string
		wantErr error
	}{
		{
			name:   "configured amount",
			cfg:    cfg,
			page:   &fakePage{status: 200, html: results},
			amount: 0,
			want:   []string{png},
		},
		{
			name:   "requested amount",
			cfg:    cfg,
			page:   &fakePage{status: 200, html: results},
			amount: 5,
			want:   []string{png, jpeg},
		},
		{
			name:    "error status",
			cfg:     cfg,
			page:    &fakePage{status: 503},
			wantErr: &StatusError{Status: 503},
		},
		{
			name:    "navigation failure",
			cfg:     cfg,
			page:    &fakePage{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")},
			wantErr: errors.New("page.Navigate > net::ERR_NAME_NOT_RESOLVED"),
		},
		{
			name:    "not configured",
			cfg:     config.ImageSearchConfig{},
			page:    &fakePage{},
			wantErr: ErrNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := NewSearcher(tt.cfg, func(ctx context.Context) (Page, error) {
				return tt.page, nil
			})

			got, err := searcher.Search(context.Background(), "green apple", tt.amount)
			if tt.wantErr != nil {
				assert.EqualError(t, err, tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "https://images.example/search?q=green+apple", tt.page.navigated)
			assert.Equal(t, "button[type=submit]", tt.page.clicked)
			assert.Equal(t, 1, tt.page.closed)
		})
	}
}
