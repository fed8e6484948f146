// Package testutil provides shared test helpers for creating config files,
// word lists and databases.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/vocabox/internal/config"
	"github.com/at-ishikawa/vocabox/internal/database"
)

// SetupTestConfig creates a config file backed by SQLite and all required
// directories under tmpDir. The random words file holds words.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string, words ...string) string {
	t.Helper()

	dirs := []string{"database", "images", "pronunciations"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}
	wordsFile := CreateRandomWords(t, filepath.Join(tmpDir, "database"), words...)

	configContent := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
storage:
  images_directory: %s
  pronunciations_directory: %s
random_words:
  file: %s
`,
		filepath.Join(tmpDir, "database", "dictionary.sqlite3"),
		filepath.Join(tmpDir, "images"),
		filepath.Join(tmpDir, "pronunciations"),
		wordsFile,
	)
	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// LoadTestConfig sets up a config under tmpDir and loads it with the
// regular loader, defaults included.
func LoadTestConfig(t *testing.T, tmpDir string, words ...string) *config.Config {
	t.Helper()

	loader, err := config.NewConfigLoader(SetupTestConfig(t, tmpDir, words...))
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	return cfg
}

// CreateRandomWords writes words as a JSON list to random-words.json in dir
// and returns the file path.
func CreateRandomWords(t *testing.T, dir string, words ...string) string {
	t.Helper()

	if words == nil {
		words = []string{}
	}
	contents, err := json.Marshal(words)
	require.NoError(t, err)
	file := filepath.Join(dir, "random-words.json")
	require.NoError(t, os.WriteFile(file, contents, 0644))
	return file
}

// NewSQLiteDB opens a migrated SQLite database that is closed when the test
// ends.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "dictionary.sqlite3"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}
