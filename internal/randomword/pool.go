// Package randomword keeps the list of practice words that are not in the
// dictionary yet.
package randomword

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrWordNotFound = errors.New("word doesn't exist")
	ErrEmpty        = errors.New("no random words left")
)

// Pool is a word list persisted to a JSON or YAML file, chosen by the file
// extension. Every mutation rewrites the whole file.
type Pool struct {
	path string

	mu    sync.Mutex
	words []string
}

// Load reads the pool at path. A missing file is an empty pool.
func Load(path string) (*Pool, error) {
	pool := &Pool{path: path}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return pool, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return pool, nil
	}

	if isYAML(path) {
		err = yaml.Unmarshal(contents, &pool.words)
	} else {
		err = json.Unmarshal(contents, &pool.words)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pool, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// Len returns the number of words left.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.words)
}

// Random returns a uniformly chosen word without removing it.
func (p *Pool) Random() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.words) == 0 {
		return "", ErrEmpty
	}
	return p.words[rand.IntN(len(p.words))], nil
}

// Remove drops every occurrence of word, ignoring case, and saves the pool.
func (p *Pool) Remove(word string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]string, 0, len(p.words))
	for _, w := range p.words {
		if !strings.EqualFold(w, word) {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(p.words) {
		return ErrWordNotFound
	}

	if err := p.save(kept); err != nil {
		return err
	}
	p.words = kept
	return nil
}

// save must be called with p.mu held. The file is replaced atomically.
func (p *Pool) save(words []string) error {
	var (
		contents []byte
		err      error
	)
	if isYAML(p.path) {
		contents, err = yaml.Marshal(words)
	} else {
		contents, err = json.MarshalIndent(words, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode random words: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".random-words-*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp(%s) > %w", dir, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(contents); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.Write > %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close > %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", p.path, err)
	}
	return nil
}
