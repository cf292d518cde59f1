// Package knowledge loads the support article corpus and answers
// retrieval queries against it.
package knowledge

import (
	"context"
	"sort"
)

// Article is one entry of the knowledge corpus.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags,omitempty"`
}

// Hit is a retrieved article with its relevance score. Score is never negative.
type Hit struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Tags    string  `json:"tags,omitempty"`
	Score   float64 `json:"score"`
}

// Retriever returns up to k articles relevant to query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Hit, error)
	Name() string
}

// sortHits orders hits by descending score, breaking ties by title so that
// repeated queries return the same order.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Title < hits[j].Title
	})
}

func hitFromArticle(a Article, score float64) Hit {
	if score < 0 {
		score = 0
	}
	return Hit{Title: a.Title, Content: a.Content, Tags: a.Tags, Score: score}
}
