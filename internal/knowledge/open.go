package knowledge

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ziadkadry99/udahub/internal/embeddings"
)

// Options selects and configures a Retriever.
type Options struct {
	Paths    []string
	Backend  string // "lexical" or "vector"
	Embedder embeddings.Embedder
	IndexDir string
	// CacheSize of zero disables result caching.
	CacheSize int
	CacheTTL  time.Duration
}

// Open loads the corpus and builds the configured retriever. The vector
// backend uses the persisted index in IndexDir when present and embeds the
// corpus in memory otherwise.
func Open(ctx context.Context, opts Options) (Retriever, error) {
	var r Retriever

	switch opts.Backend {
	case "", "lexical":
		articles, err := LoadCorpus(opts.Paths)
		if err != nil {
			return nil, err
		}
		if len(articles) == 0 {
			log.Printf("knowledge: no articles matched %v", opts.Paths)
		}
		lex, err := NewLexicalRetriever(articles)
		if err != nil {
			return nil, err
		}
		r = lex

	case "vector":
		if opts.Embedder == nil {
			return nil, fmt.Errorf("vector backend requires an embedder")
		}
		vec, err := NewVectorRetriever(opts.Embedder)
		if err != nil {
			return nil, err
		}
		if opts.IndexDir != "" && IndexExists(opts.IndexDir) {
			if err := vec.Load(opts.IndexDir); err != nil {
				return nil, err
			}
		} else {
			articles, err := LoadCorpus(opts.Paths)
			if err != nil {
				return nil, err
			}
			log.Printf("knowledge: no persisted index in %s, embedding %d articles", opts.IndexDir, len(articles))
			if _, err := vec.Index(ctx, articles, nil); err != nil {
				return nil, err
			}
		}
		r = vec

	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", opts.Backend)
	}

	if opts.CacheSize > 0 {
		cached, err := NewCachedRetriever(r, opts.CacheSize, opts.CacheTTL)
		if err != nil {
			if closer, ok := r.(io.Closer); ok {
				closer.Close()
			}
			return nil, err
		}
		r = cached
	}

	return r, nil
}
