package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/vocabox/internal/database"
	"github.com/at-ishikawa/vocabox/internal/randomword"
)

// WordRemover drops saved words from the practice pool.
type WordRemover interface {
	Remove(word string) error
}

// SaveRequest is a word to store together with its assets.
type SaveRequest struct {
	Word        string     `json:"word" binding:"required"`
	Translation string     `json:"translation" binding:"required"`
	Raw         RawPayload `json:"raw" binding:"required"`
	// Pronunciation is a data:audio/mpeg;base64 URI.
	Pronunciation string `json:"pronunciation" binding:"required"`
	// Image is an optional data:image/(jpeg|png|jpg);base64 URI.
	Image   string `json:"image"`
	Version int    `json:"version" binding:"oneof=1 2"`
}

// UpdateRequest changes the translation and optionally the image of a word.
type UpdateRequest struct {
	Word        string `json:"word" binding:"required"`
	Translation string `json:"translation" binding:"required"`
	Image       string `json:"image"`
}

// Service is the only writer of entries and their files.
type Service struct {
	db     *sqlx.DB
	repo   Repository
	files  *FileStore
	pool   WordRemover
	logger *slog.Logger
}

func NewService(db *sqlx.DB, repo Repository, files *FileStore, pool WordRemover) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		files:  files,
		pool:   pool,
		logger: slog.Default().With("component", "dictionary"),
	}
}

// Save stores a new word. The word must not be stored yet; the check and
// the insert are atomic.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*Entry, error) {
	if _, err := DecodePronunciation(req.Pronunciation); err != nil {
		return nil, err
	}
	if req.Image != "" {
		if _, _, err := DecodeImage(req.Image); err != nil {
			return nil, err
		}
	}

	word := strings.ToLower(strings.TrimSpace(req.Word))
	var (
		saved   *Entry
		written []string
	)
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)
		id, err := repo.Insert(ctx, &Entry{
			Word:        word,
			Translation: strings.ToLower(req.Translation),
			Raw:         req.Raw,
			Version:     req.Version,
		})
		if err != nil {
			return err
		}

		fileID, err := FileID(id, word)
		if err != nil {
			return err
		}
		var image string
		if req.Image != "" {
			if image, err = s.files.SaveImage(fileID, req.Image); err != nil {
				return err
			}
			written = append(written, image)
		}
		pronunciation, err := s.files.SavePronunciation(fileID, req.Pronunciation)
		if err != nil {
			return err
		}
		written = append(written, pronunciation)

		if err := repo.UpdateFiles(ctx, id, pronunciation, image); err != nil {
			return err
		}
		saved, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		for _, path := range written {
			if removeErr := s.files.Remove(path); removeErr != nil {
				s.logger.Warn("remove file of failed save", "path", path, "error", removeErr)
			}
		}
		return nil, err
	}

	if s.pool != nil {
		if err := s.pool.Remove(word); err != nil && !errors.Is(err, randomword.ErrWordNotFound) {
			s.logger.Warn("remove saved word from random words", "word", word, "error", err)
		}
	}
	s.logger.Info("word saved", "id", saved.ID, "word", saved.Word)
	return saved, nil
}

// Update changes the translation of a stored word and replaces its image
// when a new one is given.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Entry, error) {
	entry, err := s.repo.FindByWord(ctx, req.Word)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &StorageError{Op: "update", Key: req.Word, Err: ErrWordNotFound}
	}

	entry.Translation = strings.ToLower(req.Translation)
	oldImage := entry.Image
	if req.Image != "" {
		fileID, err := FileID(entry.ID, entry.Word)
		if err != nil {
			return nil, err
		}
		// The old image stays until the new one is written and stored.
		if entry.Image, err = s.files.SaveImage(fileID, req.Image); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		if entry.Image != oldImage {
			if removeErr := s.files.Remove(entry.Image); removeErr != nil {
				s.logger.Warn("remove image of failed update", "path", entry.Image, "error", removeErr)
			}
		}
		return nil, err
	}
	if entry.Image != oldImage {
		if err := s.files.Remove(oldImage); err != nil {
			s.logger.Warn("remove replaced image", "path", oldImage, "error", err)
		}
	}
	return s.Get(ctx, entry.ID)
}

// Delete removes a word and its files.
func (s *Service) Delete(ctx context.Context, id int64) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.Remove(entry.Pronunciation); err != nil {
		return err
	}
	if err := s.files.Remove(entry.Image); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("word deleted", "id", id, "word", entry.Word)
	return nil
}

// DeletePronunciation removes the audio of a word and keeps the word.
func (s *Service) DeletePronunciation(ctx context.Context, id int64) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.Remove(entry.Pronunciation); err != nil {
		return err
	}
	return s.repo.UpdateFiles(ctx, id, "", entry.Image)
}

// Get returns the entry with id.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &StorageError{Op: "get", Key: strconv.FormatInt(id, 10), Err: ErrEntryNotFound}
	}
	return entry, nil
}

// Search returns the entries matching query.
func (s *Service) Search(ctx context.Context, query string, rng Range) (*Page, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	items, total, err := s.repo.Search(ctx, query, rng)
	if err != nil {
		return nil, err
	}
	return newPage(items, total), nil
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, rng Range) (*Page, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, rng)
	if err != nil {
		return nil, err
	}
	return newPage(items, total), nil
}

// Count returns the number of stored entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func newPage(items []Entry, total int) *Page {
	if items == nil {
		items = []Entry{}
	}
	return &Page{Items: items, Total: total}
}
