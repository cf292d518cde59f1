package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/config"
	"github.com/ziadkadry99/udahub/internal/seed"
)

const defaultCorpusPath = "data/knowledge/articles.jsonl"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo customer store and knowledge corpus",
	Long:  `Writes a small SQLite customer store (users, subscriptions, reservations) and a JSONL article corpus so the pipeline can be tried end to end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		corpusPath, _ := cmd.Flags().GetString("corpus")
		force, _ := cmd.Flags().GetBool("force")

		// A missing config file is fine here; defaults apply.
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if storePath == "" {
			storePath = cfg.StorePath
		}

		if err := seed.Run(seed.Options{StorePath: storePath, CorpusPath: corpusPath, Force: force}); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Demo store written to %s\n", storePath)
		fmt.Fprintf(os.Stderr, "Knowledge corpus written to %s\n", corpusPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("store", "", "customer store path (default store_path from config)")
	seedCmd.Flags().String("corpus", defaultCorpusPath, "knowledge corpus path")
	seedCmd.Flags().Bool("force", false, "overwrite existing files")
	rootCmd.AddCommand(seedCmd)
}
