package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/gateway"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the support knowledge base",
	Long:  `Runs the retrieve_knowledge lookup used by the specialist agents and prints the matching articles.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("k", 0, "number of articles (default 4, max 10)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	k, _ := cmd.Flags().GetInt("k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.gateway.RetrieveKnowledge(ctx, args[0], k)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !res.OK {
		return fmt.Errorf("retrieval failed: %v", res.Details["reason"])
	}
	printKnowledgeTable(res)
	return nil
}

func printKnowledgeTable(res gateway.KnowledgeResult) {
	if len(res.Hits) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Printf("Found %d results:\n\n", len(res.Hits))
	for i, h := range res.Hits {
		fmt.Printf("  %d. [%.3f] %s\n", i+1, h.Score, h.Title)
		if h.Tags != "" {
			fmt.Printf("     Tags: %s\n", h.Tags)
		}
		fmt.Printf("     %s\n\n", truncate(h.Content, 120))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
