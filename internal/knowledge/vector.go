package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/udahub/internal/embeddings"
	"github.com/ziadkadry99/udahub/internal/progress"
)

const (
	collectionName = "knowledge"
	indexFileName  = "knowledge.gob.gz"
)

// VectorRetriever ranks articles by cosine similarity of embeddings stored
// in a chromem-go collection.
type VectorRetriever struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewVectorRetriever creates an empty in-memory vector index.
func NewVectorRetriever(embedder embeddings.Embedder) (*VectorRetriever, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &VectorRetriever{db: db, collection: col, embedFunc: ef}, nil
}

func (r *VectorRetriever) Name() string {
	return "vector"
}

// articleKey derives a document ID from the article text so that unchanged
// articles are not re-embedded.
func articleKey(a Article) string {
	sum := sha256.Sum256([]byte(a.Title + "\x00" + a.Content + "\x00" + a.Tags))
	return hex.EncodeToString(sum[:16])
}

// Index embeds the articles not yet in the collection. It returns the
// number of newly embedded articles.
func (r *VectorRetriever) Index(ctx context.Context, articles []Article, reporter progress.Reporter) (int, error) {
	if reporter == nil {
		reporter = progress.Nop{}
	}

	var pending []chromem.Document
	for _, a := range articles {
		id := articleKey(a)
		if _, err := r.collection.GetByID(ctx, id); err == nil {
			continue
		}
		pending = append(pending, chromem.Document{
			ID:      id,
			Content: a.Title + "\n\n" + a.Content,
			Metadata: map[string]string{
				"title":   a.Title,
				"content": a.Content,
				"tags":    a.Tags,
			},
		})
	}

	reporter.Start(len(pending))
	defer reporter.Finish()

	for i, doc := range pending {
		if err := r.collection.AddDocument(ctx, doc); err != nil {
			return i, fmt.Errorf("embedding %q: %w", doc.Metadata["title"], err)
		}
		reporter.Update(i+1, doc.Metadata["title"])
	}

	return len(pending), nil
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	count := r.collection.Count()
	if query == "" || count == 0 || k <= 0 {
		return []Hit{}, nil
	}

	// chromem-go requires nResults <= collection size.
	if k > count {
		k = count
	}

	results, err := r.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, hitFromArticle(Article{
			Title:   res.Metadata["title"],
			Content: res.Metadata["content"],
			Tags:    res.Metadata["tags"],
		}, float64(res.Similarity)))
	}
	sortHits(hits)
	return hits, nil
}

// Count returns the number of embedded articles.
func (r *VectorRetriever) Count() int {
	return r.collection.Count()
}

// Persist writes the collection to dir.
func (r *VectorRetriever) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	return r.db.ExportToFile(filepath.Join(dir, indexFileName), true, "")
}

// Load replaces the collection with the one persisted in dir.
func (r *VectorRetriever) Load(dir string) error {
	if err := r.db.ImportFromFile(filepath.Join(dir, indexFileName), ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := r.db.GetCollection(collectionName, r.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	r.collection = col
	return nil
}

// IndexExists reports whether a persisted index is present in dir.
func IndexExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, indexFileName))
	return err == nil
}
