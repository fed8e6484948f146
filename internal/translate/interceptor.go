package translate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/at-ishikawa/vocabox/internal/browser"
)

type interceptState int

const (
	// stateWaiting: no translation captured yet.
	stateWaiting interceptState = iota
	// stateTranslated: translation captured, pronunciation may still come.
	stateTranslated
	stateComplete
	stateFailed
)

func (s interceptState) String() string {
	switch s {
	case stateWaiting:
		return "waiting"
	case stateTranslated:
		return "translated"
	case stateComplete:
		return "complete"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// interceptor watches one page's responses for the payloads of one term.
//
// matched is closed when the translation is captured and done when no more
// responses are of interest, either because the result is complete or
// because the lookup failed.
type interceptor struct {
	term                  string
	batchPath             string
	pronunciationTemplate string
	// provoke asks the page to emit the pronunciation response.
	provoke func()
	logger  *slog.Logger

	mu            sync.Mutex
	state         interceptState
	version       ProtocolVersion
	raw           json.RawMessage
	correctedTerm string
	pronunciation string
	provoked      bool
	err           error
	matched       chan struct{}
	done          chan struct{}
}

func newInterceptor(term, batchPath, pronunciationTemplate string, provoke func(), logger *slog.Logger) *interceptor {
	return &interceptor{
		term:                  term,
		batchPath:             batchPath,
		pronunciationTemplate: pronunciationTemplate,
		provoke:               provoke,
		logger:                logger,
		matched:               make(chan struct{}),
		done:                  make(chan struct{}),
	}
}

func (i *interceptor) finished() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state == stateComplete || i.state == stateFailed
}

// handleResponse is registered as the page's response handler.
func (i *interceptor) handleResponse(resp browser.Response) {
	if i.finished() {
		return
	}
	u, err := url.Parse(resp.URL)
	if err != nil {
		return
	}

	query := u.Query()
	switch {
	case i.batchPath != "" && strings.Contains(u.Path, i.batchPath):
		i.handleBatch(resp)
	case !resp.Document && query.Get("q") == i.term:
		i.handleLegacy(resp, query.Get("tk"))
	}
}

func (i *interceptor) handleLegacy(resp browser.Response, tk string) {
	body, err := resp.Body()
	if err != nil {
		i.fail(&UpstreamError{Kind: KindPage, Err: err})
		return
	}
	payload, err := ParseLegacy(body)
	if err != nil {
		i.fail(err)
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != stateWaiting {
		return
	}
	i.version = ProtocolLegacy
	i.raw = payload.Raw
	i.correctedTerm = payload.CorrectedTerm
	i.pronunciation = i.pronunciationURL(tk)
	i.transition(stateTranslated)
	i.transition(stateComplete)
}

// pronunciationURL is empty when the response carried no tk.
func (i *interceptor) pronunciationURL(tk string) string {
	if i.pronunciationTemplate == "" || tk == "" {
		return ""
	}
	return strings.NewReplacer(
		"{query}", url.QueryEscape(i.term),
		"{queryLen}", strconv.Itoa(utf8.RuneCountInString(i.term)),
		"{tk}", url.QueryEscape(tk),
	).Replace(i.pronunciationTemplate)
}

func (i *interceptor) handleBatch(resp browser.Response) {
	data, err := resp.Body()
	if err != nil {
		i.logger.Debug("skip unreadable batch response", "url", resp.URL, "error", err)
		return
	}
	body := string(data)

	translation, err := ParseTranslation(body)
	if err != nil && !errors.Is(err, ErrMarkerNotFound) {
		i.fail(err)
		return
	}
	audio, err := ParsePronunciation(body)
	if err != nil && !errors.Is(err, ErrMarkerNotFound) {
		i.fail(err)
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != stateWaiting && i.state != stateTranslated {
		return
	}
	if audio != "" && i.pronunciation == "" {
		i.pronunciation = audio
	}
	if translation != nil && i.state == stateWaiting {
		i.version = ProtocolBatch
		i.raw = translation.Raw
		i.correctedTerm = translation.CorrectedTerm
		i.transition(stateTranslated)
	}
	if i.state != stateTranslated {
		return
	}
	if i.pronunciation != "" {
		i.transition(stateComplete)
		return
	}
	if !i.provoked && i.provoke != nil {
		i.provoked = true
		go i.provoke()
	}
}

// transition must be called with i.mu held.
func (i *interceptor) transition(next interceptState) {
	i.logger.Debug("interceptor state", "term", i.term, "from", i.state, "to", next)
	i.state = next
	switch next {
	case stateTranslated:
		close(i.matched)
	case stateComplete, stateFailed:
		close(i.done)
	}
}

// handleError is registered as the page's error handler.
func (i *interceptor) handleError(err error) {
	i.fail(&UpstreamError{Kind: KindPage, Err: err})
}

// fail ends the lookup with err. Once a translation is captured only a
// ParseError still fails it; other failures are dropped so the captured
// result can be returned.
func (i *interceptor) fail(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var parseErr *ParseError
	switch {
	case i.state == stateWaiting:
	case i.state == stateTranslated && errors.As(err, &parseErr):
	default:
		return
	}
	i.err = err
	i.transition(stateFailed)
}

// result settles the interceptor after its page closed. A captured
// translation resolves even without pronunciation.
func (i *interceptor) result() (*Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case stateWaiting:
		i.err = &UpstreamError{Kind: KindNoResponse, Err: errors.New("page closed before a translation response arrived")}
		i.transition(stateFailed)
	case stateTranslated:
		i.transition(stateComplete)
	}

	if i.state == stateFailed {
		return nil, i.err
	}
	return &Result{
		Term:          i.term,
		Version:       i.version,
		Raw:           i.raw,
		Pronunciation: i.pronunciation,
		CorrectedTerm: i.correctedTerm,
	}, nil
}
