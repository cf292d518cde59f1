package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/config"
	"github.com/ziadkadry99/udahub/internal/embeddings"
	"github.com/ziadkadry99/udahub/internal/knowledge"
	"github.com/ziadkadry99/udahub/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index for the knowledge corpus",
	Long: `Embeds every article matched by knowledge.paths and persists the index to
knowledge.index_dir. Articles already in the index are skipped, so the command
can be re-run after adding articles. The index is used by the vector backend.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Bool("rebuild", false, "discard the persisted index and embed everything")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rebuild, _ := cmd.Flags().GetBool("rebuild")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Knowledge.Backend != config.BackendVector {
		fmt.Fprintf(os.Stderr, "Note: knowledge.backend is %q; the index is only read by the vector backend.\n", cfg.Knowledge.Backend)
	}

	embedder, err := embeddings.New(string(cfg.Knowledge.EmbeddingProvider), cfg.Knowledge.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	vec, err := knowledge.NewVectorRetriever(embedder)
	if err != nil {
		return err
	}

	dir := cfg.Knowledge.IndexDir
	if rebuild {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing index %s: %w", dir, err)
		}
	} else if knowledge.IndexExists(dir) {
		if err := vec.Load(dir); err != nil {
			return fmt.Errorf("loading index: %w", err)
		}
	}

	articles, err := knowledge.LoadCorpus(cfg.Knowledge.Paths)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return fmt.Errorf("no articles matched %v", cfg.Knowledge.Paths)
	}

	added, err := vec.Index(ctx, articles, progress.NewReporter("Embedding articles"))
	if err != nil {
		return err
	}

	if err := vec.Persist(dir); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d new article(s), %d total, in %s\n", added, vec.Count(), dir)
	return nil
}
