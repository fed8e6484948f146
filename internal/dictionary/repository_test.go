package dictionary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/vocabox/internal/testutil"
)

var entryRowColumns = []string{
	"id", "word", "translation", "raw", "pronunciation", "image", "version", "created_at", "updated_at",
}

func TestDBRepository_FindByWord(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		word      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *Entry
		wantErr   bool
	}{
		{
			name: "found",
			word: "Apple",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(entryRowColumns).
					AddRow(1, "apple", "яблоко", []byte(`[["apple","яблоко"]]`), "/pronunciations/1-apple.mp3", "", 2, now, now)
				mock.ExpectQuery("SELECT (.+) FROM dictionary WHERE word = \\?").
					WithArgs("Apple").
					WillReturnRows(rows)
			},
			want: &Entry{
				ID:            1,
				Word:          "apple",
				Translation:   "яблоко",
				Raw:           RawPayload(`[["apple","яблоко"]]`),
				Pronunciation: "/pronunciations/1-apple.mp3",
				Version:       2,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		},
		{
			name: "not found",
			word: "nonexistent",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM dictionary WHERE word = \\?").
					WithArgs("nonexistent").
					WillReturnRows(sqlmock.NewRows(entryRowColumns))
			},
		},
		{
			name: "query error",
			word: "apple",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM dictionary WHERE word = \\?").
					WithArgs("apple").
					WillReturnError(errors.New("connection lost"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			got, err := repo.FindByWord(context.Background(), tt.word)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Insert_MySQL(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantID    int64
		wantErr   error
	}{
		{
			name: "inserted",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT IGNORE INTO dictionary").
					WithArgs("apple", "яблоко", RawPayload(`[]`), 2).
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			wantID: 42,
		},
		{
			name: "word already stored",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT IGNORE INTO dictionary").
					WithArgs("apple", "яблоко", RawPayload(`[]`), 2).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrWordExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			got, err := repo.Insert(context.Background(), &Entry{
				Word:        "apple",
				Translation: "яблоко",
				Raw:         RawPayload(`[]`),
				Version:     2,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var storageErr *StorageError
				assert.ErrorAs(t, err, &storageErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Search_MySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM dictionary\\s+WHERE word LIKE \\? OR translation LIKE \\?\\s+ORDER BY").
		WithArgs("%app%", "%app%", "app", "app%", "%app", 10, 0).
		WillReturnRows(sqlmock.NewRows(entryRowColumns).
			AddRow(1, "apple", "яблоко", []byte(`[]`), "", "", 2, now, now))
	mock.ExpectQuery("SELECT COUNT\\(id\\) FROM dictionary WHERE word LIKE").
		WithArgs("%app%", "%app%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
	got, total, err := repo.Search(context.Background(), "app", Range{From: 0, To: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "apple", got[0].Word)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	repo := NewDBRepository(testutil.NewSQLiteDB(t))

	words := []string{"pineapple", "apple", "apples", "crabapple", "banana"}
	ids := map[string]int64{}
	for _, word := range words {
		id, err := repo.Insert(ctx, &Entry{Word: word, Translation: word + "-ru", Raw: RawPayload(`[["` + word + `"]]`), Version: 2})
		require.NoError(t, err)
		ids[word] = id
	}

	t.Run("insert ignores case when checking uniqueness", func(t *testing.T) {
		_, err := repo.Insert(ctx, &Entry{Word: "APPLE", Raw: RawPayload(`[]`), Version: 2})
		assert.ErrorIs(t, err, ErrWordExists)
	})

	t.Run("find by word ignores case", func(t *testing.T) {
		got, err := repo.FindByWord(ctx, "Apple")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ids["apple"], got.ID)
		assert.JSONEq(t, `[["apple"]]`, string(got.Raw))
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("search ranks exact, prefix, suffix, then other matches", func(t *testing.T) {
		got, total, err := repo.Search(ctx, "apple", Range{From: 0, To: 10})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		var gotWords []string
		for _, e := range got {
			gotWords = append(gotWords, e.Word)
		}
		assert.Equal(t, []string{"apple", "apples", "crabapple", "pineapple"}, gotWords)
	})

	t.Run("search pages", func(t *testing.T) {
		got, total, err := repo.Search(ctx, "apple", Range{From: 1, To: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, got, 1)
		assert.Equal(t, "apples", got[0].Word)
	})

	t.Run("list and count", func(t *testing.T) {
		got, total, err := repo.List(ctx, Range{From: 0, To: 3})
		require.NoError(t, err)
		assert.Equal(t, len(words), total)
		assert.Len(t, got, 3)
		assert.Equal(t, "banana", got[0].Word, "newest first")

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(words), count)
	})

	t.Run("update files and translation", func(t *testing.T) {
		id := ids["banana"]
		require.NoError(t, repo.UpdateFiles(ctx, id, "/pronunciations/5-banana.mp3", "/images/5-banana.png"))

		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		got.Translation = "банан"
		require.NoError(t, repo.Update(ctx, got))

		got, err = repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "банан", got.Translation)
		assert.Equal(t, "/pronunciations/5-banana.mp3", got.Pronunciation)
		assert.Equal(t, "/images/5-banana.png", got.Image)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, ids["crabapple"]))
		got, err := repo.FindByID(ctx, ids["crabapple"])
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.ErrorIs(t, repo.Delete(ctx, ids["crabapple"]), ErrEntryNotFound)
	})
}

func TestRange_Validate(t *testing.T) {
	assert.NoError(t, Range{From: 0, To: 10}.Validate())
	assert.Error(t, Range{From: -1, To: 10}.Validate())
	assert.Error(t, Range{From: 5, To: 5}.Validate())
}
