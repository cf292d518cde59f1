// Package embeddings turns knowledge articles and queries into vectors for
// the vector retrieval backend.
package embeddings

import (
	"context"
	"errors"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

var errNoVector = errors.New("embedder returned no vector")

// ToChromemFunc adapts e to chromem-go, which embeds one text at a time.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 || len(vecs[0]) == 0 {
			return nil, errNoVector
		}
		return vecs[0], nil
	}
}
