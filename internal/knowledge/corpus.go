package knowledge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// rawArticle mirrors a JSONL line. Tags may be a string or a list of strings.
type rawArticle struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Tags    json.RawMessage `json:"tags"`
}

// LoadCorpus reads every JSONL file matched by the given glob patterns.
// Patterns that match nothing are not an error; the corpus is simply empty.
// Malformed lines are logged and skipped.
func LoadCorpus(patterns []string) ([]Article, error) {
	seen := make(map[string]bool)
	var articles []Article

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad knowledge pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			fileArticles, err := loadFile(path)
			if err != nil {
				return nil, err
			}
			articles = append(articles, fileArticles...)
		}
	}

	return articles, nil
}

func loadFile(path string) ([]Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var articles []Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var ra rawArticle
		if err := json.Unmarshal(raw, &ra); err != nil {
			log.Printf("knowledge: skipping %s:%d: %v", path, line, err)
			continue
		}
		if strings.TrimSpace(ra.Title) == "" && strings.TrimSpace(ra.Content) == "" {
			continue
		}

		id := ra.ID
		if id == "" {
			id = fmt.Sprintf("%s:%d", path, line)
		}
		articles = append(articles, Article{
			ID:      id,
			Title:   ra.Title,
			Content: ra.Content,
			Tags:    decodeTags(ra.Tags),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return articles, nil
}

// decodeTags accepts "a, b" or ["a", "b"] and returns a comma-separated string.
func decodeTags(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}
