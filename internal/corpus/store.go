package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Snippet is one line of the JSONL corpus file.
type Snippet struct {
	URL      string   `json:"url,omitempty"`
	Text     string   `json:"text"`
	Keywords []string `json:"keywords,omitempty"`
}

// Store reads and appends the line-delimited JSON snippet corpus. A missing
// file reads as an empty corpus; a crawl run creates it on first append.
type Store struct {
	path string
}

// NewStore returns a store over the corpus file at path.
func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

// Path returns the corpus file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns every usable snippet in the corpus. Blank lines, undecodable
// lines, and entries without text are skipped, so a partially written file
// still yields whatever a crawl run managed to store.
func (s *Store) Load() ([]Snippet, error) {
	snippets, _, err := s.scan()
	return snippets, err
}

// Sample returns up to limit snippet texts in random order. The texts seed
// the prompt plan with style references; order carries no meaning.
func (s *Store) Sample(limit int) ([]string, error) {
	snippets, _, err := s.scan()
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		texts = append(texts, snippet.Text)
	}
	rand.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})
	if limit > 0 && len(texts) > limit {
		texts = texts[:limit]
	}
	return texts, nil
}

// Append writes snippets to the corpus file, one JSON object per line,
// creating the file and its directory as needed. Snippets without text are
// dropped.
func (s *Store) Append(snippets []Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	if s.path == "" {
		return errors.New("corpus append: no corpus file configured")
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("corpus append: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("corpus append: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, snippet := range snippets {
		snippet.Text = strings.TrimSpace(snippet.Text)
		if snippet.Text == "" {
			continue
		}
		if err := encoder.Encode(snippet); err != nil {
			file.Close()
			return fmt.Errorf("corpus append: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("corpus append: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("corpus append: %w", err)
	}
	return nil
}

// Stats summarizes the corpus file for operator display.
type Stats struct {
	Path      string
	Snippets  int
	Skipped   int
	Sources   int
	SizeBytes int64
	UpdatedAt time.Time
}

// Stats reports corpus size and shape. Skipped counts lines that were
// present but unusable.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Path: s.path}
	snippets, skipped, err := s.scan()
	if err != nil {
		return stats, err
	}
	stats.Snippets = len(snippets)
	stats.Skipped = skipped

	sources := make(map[string]struct{})
	for _, snippet := range snippets {
		if snippet.URL != "" {
			sources[snippet.URL] = struct{}{}
		}
	}
	stats.Sources = len(sources)

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
		stats.UpdatedAt = info.ModTime()
	}
	return stats, nil
}

func (s *Store) scan() ([]Snippet, int, error) {
	if s.path == "" {
		return nil, 0, nil
	}
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("corpus read: %w", err)
	}
	defer file.Close()

	var snippets []Snippet
	var skipped int
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var snippet Snippet
		if err := json.Unmarshal([]byte(line), &snippet); err != nil {
			skipped++
			continue
		}
		snippet.Text = strings.TrimSpace(snippet.Text)
		if snippet.Text == "" {
			skipped++
			continue
		}
		snippets = append(snippets, snippet)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("corpus read: %w", err)
	}
	return snippets, skipped, nil
}
