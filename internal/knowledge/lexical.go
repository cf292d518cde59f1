package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// lexicalDoc is the shape indexed by bleve.
type lexicalDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// LexicalRetriever scores articles with bleve's full-text relevance over an
// in-memory index. Title matches weigh more than body matches.
type LexicalRetriever struct {
	index    bleve.Index
	articles map[string]Article
}

// NewLexicalRetriever indexes the given articles in memory.
func NewLexicalRetriever(articles []Article) (*LexicalRetriever, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating lexical index: %w", err)
	}

	r := &LexicalRetriever{index: index, articles: make(map[string]Article, len(articles))}

	batch := index.NewBatch()
	for _, a := range articles {
		r.articles[a.ID] = a
		if err := batch.Index(a.ID, lexicalDoc{Title: a.Title, Content: a.Content, Tags: a.Tags}); err != nil {
			index.Close()
			return nil, fmt.Errorf("indexing article %s: %w", a.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("writing lexical index: %w", err)
	}

	return r, nil
}

func (r *LexicalRetriever) Name() string {
	return "lexical"
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(r.articles) == 0 || k <= 0 {
		return []Hit{}, nil
	}

	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	title.SetBoost(2.0)
	content := bleve.NewMatchQuery(query)
	content.SetField("content")
	tags := bleve.NewMatchQuery(query)
	tags.SetField("tags")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(title, content, tags), k, 0, false)
	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		a, ok := r.articles[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, hitFromArticle(a, h.Score))
	}
	sortHits(hits)
	return hits, nil
}

// Close releases the index.
func (r *LexicalRetriever) Close() error {
	return r.index.Close()
}
