package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/at-ishikawa/vocabox/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/dictionary/mock_repository.go -package=mock_dictionary

// Repository defines operations for managing dictionary entries.
// Word comparisons ignore case.
type Repository interface {
	FindByWord(ctx context.Context, word string) (*Entry, error)
	FindByID(ctx context.Context, id int64) (*Entry, error)
	Insert(ctx context.Context, entry *Entry) (int64, error)
	Update(ctx context.Context, entry *Entry) error
	UpdateFiles(ctx context.Context, id int64, pronunciation, image string) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, rng Range) ([]Entry, int, error)
	List(ctx context.Context, rng Range) ([]Entry, int, error)
	Count(ctx context.Context) (int, error)
	WithTx(tx *sqlx.Tx) Repository
}

const entryColumns = "id, word, translation, raw, pronunciation, image, version, created_at, updated_at"

// DBRepository implements Repository on MySQL or SQLite.
type DBRepository struct {
	db     sqlx.ExtContext
	driver string
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db, driver: db.DriverName()}
}

// WithTx returns a repository running its statements in tx.
func (r *DBRepository) WithTx(tx *sqlx.Tx) Repository {
	return &DBRepository{db: tx, driver: r.driver}
}

func (r *DBRepository) find(ctx context.Context, where string, arg any) (*Entry, error) {
	var entry Entry
	err := sqlx.GetContext(ctx, r.db, &entry, "SELECT "+entryColumns+" FROM dictionary WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(dictionary) > %w", err)
	}
	return &entry, nil
}

// FindByWord returns the entry for word, or nil if there is none.
func (r *DBRepository) FindByWord(ctx context.Context, word string) (*Entry, error) {
	return r.find(ctx, "word = ?", word)
}

// FindByID returns the entry with id, or nil if there is none.
func (r *DBRepository) FindByID(ctx context.Context, id int64) (*Entry, error) {
	return r.find(ctx, "id = ?", id)
}

// Insert adds entry unless its word is already stored, in which case the
// error wraps ErrWordExists. The check and the write are one statement.
func (r *DBRepository) Insert(ctx context.Context, entry *Entry) (int64, error) {
	verb := "INSERT OR IGNORE"
	if r.driver == database.DriverMySQL {
		verb = "INSERT IGNORE"
	}
	result, err := r.db.ExecContext(ctx,
		verb+" INTO dictionary (word, translation, raw, version) VALUES (?, ?, ?, ?)",
		entry.Word, entry.Translation, entry.Raw, entry.Version)
	if err != nil {
		return 0, fmt.Errorf("db.ExecContext(insert dictionary) > %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if affected == 0 {
		return 0, &StorageError{Op: "insert", Key: entry.Word, Err: ErrWordExists}
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("result.LastInsertId() > %w", err)
	}
	return id, nil
}

// Update stores the translation, image and pronunciation of entry.
func (r *DBRepository) Update(ctx context.Context, entry *Entry) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE dictionary SET translation = ?, image = ?, pronunciation = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		entry.Translation, entry.Image, entry.Pronunciation, entry.ID)
	if err != nil {
		return fmt.Errorf("db.ExecContext(update dictionary) > %w", err)
	}
	return nil
}

// UpdateFiles stores the asset paths of the entry with id.
func (r *DBRepository) UpdateFiles(ctx context.Context, id int64, pronunciation, image string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE dictionary SET pronunciation = ?, image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		pronunciation, image, id)
	if err != nil {
		return fmt.Errorf("db.ExecContext(update dictionary files) > %w", err)
	}
	return nil
}

// Delete removes the entry with id.
func (r *DBRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM dictionary WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("db.ExecContext(delete dictionary) > %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected() > %w", err)
	}
	if affected == 0 {
		return &StorageError{Op: "delete", Key: strconv.FormatInt(id, 10), Err: ErrEntryNotFound}
	}
	return nil
}

// Search returns entries whose word or translation contains query. Exact
// word matches come first, then prefix matches, then suffix matches.
func (r *DBRepository) Search(ctx context.Context, query string, rng Range) ([]Entry, int, error) {
	contains := "%" + query + "%"

	var (
		entries []Entry
		total   int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := sqlx.SelectContext(egCtx, r.db, &entries,
			`SELECT `+entryColumns+` FROM dictionary
			WHERE word LIKE ? OR translation LIKE ?
			ORDER BY CASE
				WHEN word = ? THEN 1
				WHEN word LIKE ? THEN 2
				WHEN word LIKE ? THEN 3
				ELSE 4
			END, word ASC, created_at DESC
			LIMIT ? OFFSET ?`,
			contains, contains, query, query+"%", "%"+query, rng.limit(), rng.From)
		if err != nil {
			return fmt.Errorf("sqlx.SelectContext(search dictionary) > %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		err := sqlx.GetContext(egCtx, r.db, &total,
			"SELECT COUNT(id) FROM dictionary WHERE word LIKE ? OR translation LIKE ?", contains, contains)
		if err != nil {
			return fmt.Errorf("sqlx.GetContext(count search dictionary) > %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// List returns entries newest first.
func (r *DBRepository) List(ctx context.Context, rng Range) ([]Entry, int, error) {
	var (
		entries []Entry
		total   int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := sqlx.SelectContext(egCtx, r.db, &entries,
			"SELECT "+entryColumns+" FROM dictionary ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
			rng.limit(), rng.From)
		if err != nil {
			return fmt.Errorf("sqlx.SelectContext(list dictionary) > %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		total, err = r.Count(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Count returns the number of stored entries.
func (r *DBRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(id) FROM dictionary"); err != nil {
		return 0, fmt.Errorf("sqlx.GetContext(count dictionary) > %w", err)
	}
	return total, nil
}
