// Package translate drives the upstream translation site through a browser
// page and decodes the responses it sends back.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/at-ishikawa/vocabox/internal/config"
)

// Result is the outcome of one upstream lookup.
type Result struct {
	Term    string
	Version ProtocolVersion
	Raw     json.RawMessage
	// Pronunciation is an inline data URI for ProtocolBatch and a remote URL
	// for ProtocolLegacy. It is empty when the upstream sent no audio.
	Pronunciation string
	CorrectedTerm string
}

// Corrected reports whether the upstream suggested a different spelling.
func (r *Result) Corrected() bool {
	return r.CorrectedTerm != "" && !strings.EqualFold(r.CorrectedTerm, r.Term)
}

// Translator looks terms up on the upstream site, one page per lookup.
type Translator struct {
	cfg      config.TranslateConfig
	openPage OpenPageFunc
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewTranslator creates a Translator that opens its pages with openPage.
func NewTranslator(cfg config.TranslateConfig, openPage OpenPageFunc) *Translator {
	logger := slog.Default().With("component", "translate")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "translate",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.Breaker.MaxFailures > 0 && counts.ConsecutiveFailures >= cfg.Breaker.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the upstream.
			return err == nil || IsKind(err, KindCanceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Translator{
		cfg:      cfg,
		openPage: openPage,
		breaker:  breaker,
		logger:   logger,
	}
}

// Lookup translates term from sourceLang to targetLang. Empty languages fall
// back to the configured defaults. Errors are *UpstreamError or *ParseError.
func (t *Translator) Lookup(ctx context.Context, term, sourceLang, targetLang string) (*Result, error) {
	if sourceLang == "" {
		sourceLang = t.cfg.SourceLanguage
	}
	if targetLang == "" {
		targetLang = t.cfg.TargetLanguage
	}

	start := time.Now()
	t.logger.Debug("lookup started", "term", term, "source", sourceLang, "target", targetLang)
	out, err := t.breaker.Execute(func() (interface{}, error) {
		return t.lookup(ctx, term, sourceLang, targetLang)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &UpstreamError{Kind: KindUnavailable, Err: err}
		}
		t.logFailure(term, err)
		return nil, err
	}

	result := out.(*Result)
	t.logger.Info("lookup finished",
		"term", term,
		"version", int(result.Version),
		"corrected", result.CorrectedTerm,
		"pronunciation", result.Pronunciation != "",
		"duration", time.Since(start),
	)
	return result, nil
}

func (t *Translator) logFailure(term string, err error) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.logger.Error("upstream payload could not be parsed", "term", term, "marker", parseErr.Marker, "step", parseErr.Step, "error", err)
		return
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		t.logger.Warn("lookup failed", "term", term, "kind", string(upstreamErr.Kind), "error", err)
		return
	}
	t.logger.Error("lookup failed", "term", term, "error", err)
}

func (t *Translator) lookup(ctx context.Context, term, sourceLang, targetLang string) (*Result, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	page, err := t.openPage(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, &UpstreamError{Kind: KindBrowser, Err: err}
	}
	defer page.Close()

	provoke := func() {
		if err := page.Hover(ctx, t.cfg.HoverSelector); err != nil {
			t.logger.Debug("hover for pronunciation failed", "term", term, "error", err)
		}
	}
	icpt := newInterceptor(term, t.cfg.BatchPath, t.cfg.PronunciationURLTemplate, provoke, t.logger)
	page.OnResponse(icpt.handleResponse)
	page.OnError(icpt.handleError)

	navigation := make(chan error, 1)
	requestURL := t.requestURL(term, sourceLang, targetLang)
	go func() {
		status, err := page.Navigate(ctx, requestURL)
		switch {
		case err != nil && ctx.Err() != nil:
			navigation <- contextError(ctx.Err())
		case err != nil:
			navigation <- &UpstreamError{Kind: KindNavigation, Err: err}
		case status != http.StatusOK:
			navigation <- &UpstreamError{Kind: KindStatus, Status: status}
		default:
			navigation <- nil
		}
	}()

	t.await(ctx, icpt, navigation)
	if err := page.Close(); err != nil {
		t.logger.Debug("close page", "term", term, "error", err)
	}
	return icpt.result()
}

// await returns once the interceptor is done, the pronunciation grace period
// after the translation ran out, or ctx ended.
func (t *Translator) await(ctx context.Context, icpt *interceptor, navigation <-chan error) {
	matched := icpt.matched
	var grace <-chan time.Time
	for {
		select {
		case <-icpt.done:
			return
		case <-matched:
			matched = nil
			timer := time.NewTimer(t.cfg.PronunciationWait)
			defer timer.Stop()
			grace = timer.C
		case <-grace:
			return
		case err := <-navigation:
			navigation = nil
			if err != nil {
				icpt.fail(err)
			}
		case <-ctx.Done():
			icpt.fail(contextError(ctx.Err()))
			return
		}
	}
}

func (t *Translator) requestURL(term, sourceLang, targetLang string) string {
	return strings.NewReplacer(
		"{sourceLang}", url.QueryEscape(sourceLang),
		"{targetLang}", url.QueryEscape(targetLang),
		"{query}", url.QueryEscape(term),
	).Replace(t.cfg.URLTemplate)
}

// Available reports whether the circuit breaker lets lookups through.
func (t *Translator) Available() bool {
	return t.breaker.State() != gobreaker.StateOpen
}
