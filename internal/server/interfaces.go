package server

import (
	"context"

	"github.com/at-ishikawa/vocabox/internal/dictionary"
)

//go:generate mockgen -source=interfaces.go -destination=../mocks/server/mock_interfaces.go -package=mock_server

// Resolver answers lookups from the dictionary or the upstream site.
type Resolver interface {
	Resolve(ctx context.Context, term, sourceLang, targetLang string) (*dictionary.Resolution, error)
}

// Dictionary stores and queries saved words.
type Dictionary interface {
	Save(ctx context.Context, req dictionary.SaveRequest) (*dictionary.Entry, error)
	Update(ctx context.Context, req dictionary.UpdateRequest) (*dictionary.Entry, error)
	Delete(ctx context.Context, id int64) error
	DeletePronunciation(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*dictionary.Entry, error)
	Search(ctx context.Context, query string, rng dictionary.Range) (*dictionary.Page, error)
	List(ctx context.Context, rng dictionary.Range) (*dictionary.Page, error)
	Count(ctx context.Context) (int, error)
}

// RandomWords is the pool of practice words.
type RandomWords interface {
	Random() (string, error)
	Remove(word string) error
}

// ImageSearcher finds inline images for a word.
type ImageSearcher interface {
	Search(ctx context.Context, query string, amount int) ([]string, error)
}
