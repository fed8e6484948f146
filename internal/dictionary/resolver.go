package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/at-ishikawa/vocabox/internal/translate"
)

//go:generate mockgen -source=resolver.go -destination=../mocks/dictionary/mock_resolver.go -package=mock_dictionary

// Translator looks a term up upstream.
type Translator interface {
	Lookup(ctx context.Context, term, sourceLang, targetLang string) (*translate.Result, error)
}

// AudioDownloader turns a remote pronunciation URL into a data URI.
type AudioDownloader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Resolution is the answer to a lookup. Word is always the spelling the
// caller asked for, even when the payload belongs to a corrected spelling.
type Resolution struct {
	Word          string     `json:"word"`
	Cached        bool       `json:"cached"`
	ID            int64      `json:"id,omitempty"`
	Translation   string     `json:"translation,omitempty"`
	Raw           RawPayload `json:"raw"`
	Pronunciation string     `json:"pronunciation"`
	Image         string     `json:"image,omitempty"`
	Version       int        `json:"version"`
	CorrectedTerm string     `json:"corrected_term,omitempty"`
}

func resolutionFromEntry(word string, entry *Entry) *Resolution {
	return &Resolution{
		Word:          word,
		Cached:        true,
		ID:            entry.ID,
		Translation:   entry.Translation,
		Raw:           entry.Raw,
		Pronunciation: entry.Pronunciation,
		Image:         entry.Image,
		Version:       entry.Version,
	}
}

// Resolver answers lookups from storage first and from the upstream
// translator otherwise. It never writes to storage.
type Resolver struct {
	repo       Repository
	translator Translator
	audio      AudioDownloader
	group      singleflight.Group
	logger     *slog.Logger
}

func NewResolver(repo Repository, translator Translator, audio AudioDownloader) *Resolver {
	return &Resolver{
		repo:       repo,
		translator: translator,
		audio:      audio,
		logger:     slog.Default().With("component", "resolver"),
	}
}

// Resolve answers term. Concurrent calls for the same term and languages
// share one upstream lookup, which outlives a caller that gives up.
func (r *Resolver) Resolve(ctx context.Context, term, sourceLang, targetLang string) (*Resolution, error) {
	key := strings.ToLower(term) + "|" + sourceLang + "|" + targetLang
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.resolve(shared, term, sourceLang, targetLang)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resolution := *res.Val.(*Resolution)
		// Shared callers may have typed the word in a different case.
		resolution.Word = term
		return &resolution, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, term, sourceLang, targetLang string) (*Resolution, error) {
	entry, err := r.repo.FindByWord(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("repo.FindByWord(%s) > %w", term, err)
	}
	if entry != nil {
		return resolutionFromEntry(term, entry), nil
	}

	result, err := r.translator.Lookup(ctx, term, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	corrected := ""
	if result.Corrected() {
		corrected = result.CorrectedTerm
		r.logger.Info("upstream corrected the spelling", "term", term, "corrected", corrected)

		entry, err := r.repo.FindByWord(ctx, corrected)
		if err != nil {
			return nil, fmt.Errorf("repo.FindByWord(%s) > %w", corrected, err)
		}
		if entry != nil {
			resolution := resolutionFromEntry(term, entry)
			resolution.CorrectedTerm = corrected
			return resolution, nil
		}

		result, err = r.translator.Lookup(ctx, corrected, sourceLang, targetLang)
		if err != nil {
			return nil, err
		}
	}

	return &Resolution{
		Word:          term,
		Raw:           RawPayload(result.Raw),
		Pronunciation: r.inlinePronunciation(ctx, term, result.Pronunciation),
		Version:       int(result.Version),
		CorrectedTerm: corrected,
	}, nil
}

// inlinePronunciation downloads remote audio. A failed download drops the
// pronunciation rather than failing the lookup.
func (r *Resolver) inlinePronunciation(ctx context.Context, term, pronunciation string) string {
	if !strings.HasPrefix(pronunciation, "http://") && !strings.HasPrefix(pronunciation, "https://") {
		return pronunciation
	}
	if r.audio == nil {
		return ""
	}
	inlined, err := r.audio.Fetch(ctx, pronunciation)
	if err != nil {
		r.logger.Warn("drop pronunciation", "term", term, "url", pronunciation, "error", err)
		return ""
	}
	return inlined
}
