package translate

import (
	"context"

	"github.com/at-ishikawa/vocabox/internal/browser"
)

// Page is the part of a browser tab a lookup drives.
type Page interface {
	OnResponse(func(browser.Response))
	OnError(func(error))
	Navigate(ctx context.Context, url string) (int, error)
	Hover(ctx context.Context, selector string) error
	Close() error
}

// OpenPageFunc opens a fresh page for one lookup.
type OpenPageFunc func(ctx context.Context) (Page, error)

// BrowserPages opens pages on a shared browser.
func BrowserPages(manager *browser.Manager) OpenPageFunc {
	return func(ctx context.Context) (Page, error) {
		page, err := manager.NewPage(ctx)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}
