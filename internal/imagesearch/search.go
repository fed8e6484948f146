// Package imagesearch collects inline preview images for a word from an
// image search page.
package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/at-ishikawa/vocabox/internal/browser"
	"github.com/at-ishikawa/vocabox/internal/config"
)

const (
	DefaultAmount = 5
	// MinWidth is the rendered width in pixels an image must exceed.
	MinWidth = 50

	widthAttr = "data-rendered-width"
)

var (
	ErrNotConfigured = errors.New("image search is not configured")

	inlineImage = regexp.MustCompile(`^data:image/(jpeg|png|jpg);base64,`)

	// Rendered widths are not part of the serialized document, so they are
	// copied into an attribute first.
	markWidths = `Array.from(document.images).map(img => { img.setAttribute("` + widthAttr + `", String(img.width)); return img.width; }).length`
)

// StatusError is returned when the search page answers with a status other
// than 200.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image search page answered with status %d", e.Status)
}

// Page is the part of a browser tab a search drives.
type Page interface {
	Navigate(ctx context.Context, url string) (int, error)
	Click(ctx context.Context, selector string) error
	WaitIdle(ctx context.Context, quiet time.Duration) error
	Evaluate(ctx context.Context, expression string, res any) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// OpenPageFunc opens a fresh page for one search.
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

type Searcher struct {
	cfg      config.ImageSearchConfig
	openPage OpenPageFunc
	logger   *slog.Logger
}

func NewSearcher(cfg config.ImageSearchConfig, openPage OpenPageFunc) *Searcher {
	return &Searcher{
		cfg:      cfg,
		openPage: openPage,
		logger:   slog.Default().With("component", "imagesearch"),
	}
}

// Search returns up to amount inline images for query. A non-positive
// amount falls back to the configured one.
func (s *Searcher) Search(ctx context.Context, query string, amount int) ([]string, error) {
	if s.cfg.URLTemplate == "" {
		return nil, ErrNotConfigured
	}
	if amount <= 0 {
		amount = s.cfg.Amount
	}
	if amount <= 0 {
		amount = DefaultAmount
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	page, err := s.openPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warn("close page", "error", err)
		}
	}()

	requestURL := strings.ReplaceAll(s.cfg.URLTemplate, "{query}", url.QueryEscape(query))
	status, err := page.Navigate(ctx, requestURL)
	if err != nil {
		return nil, fmt.Errorf("page.Navigate > %w", err)
	}
	if status != http.StatusOK {
		return nil, &StatusError{Status: status}
	}

	if s.cfg.SubmitSelector != "" {
		if err := page.Click(ctx, s.cfg.SubmitSelector); err != nil {
			return nil, err
		}
	}
	if err := page.WaitIdle(ctx, s.cfg.IdleQuiet); err != nil {
		return nil, fmt.Errorf("wait for results: %w", err)
	}

	var marked int
	if err := page.Evaluate(ctx, markWidths, &marked); err != nil {
		return nil, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}

	images, err := Extract(html, amount)
	if err != nil {
		return nil, err
	}
	s.logger.Info("images found", "query", query, "images", marked, "kept", len(images))
	return images, nil
}

// Extract returns, in document order, the src of up to amount images that
// are inline jpeg or png data and wider than MinWidth.
func Extract(html string, amount int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("goquery.NewDocumentFromReader() > %w", err)
	}

	images := []string{}
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if !inlineImage.MatchString(src) || width(img) <= MinWidth {
			return true
		}
		images = append(images, src)
		return len(images) < amount
	})
	return images, nil
}

func width(img *goquery.Selection) int {
	for _, attr := range []string{widthAttr, "width"} {
		if value, ok := img.Attr(attr); ok {
			if w, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return w
			}
		}
	}
	return 0
}
