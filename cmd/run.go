package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run [ticket]",
	Short: "Triage a single support ticket",
	Long: `Classifies, routes and answers one ticket. Without an argument the ticket
text is read interactively. Reusing --thread resumes an interrupted run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTicket,
}

func init() {
	runCmd.Flags().String("thread", "", "thread id (generated when empty)")
	runCmd.Flags().StringSlice("metadata", nil, "ticket metadata as key=value (repeatable)")
	runCmd.Flags().Bool("json", false, "output the result as JSON")
	rootCmd.AddCommand(runCmd)
}

func runTicket(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	threadID, _ := cmd.Flags().GetString("thread")
	pairs, _ := cmd.Flags().GetStringSlice("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	metadata, err := parseMetadata(pairs)
	if err != nil {
		return err
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		prompt := promptui.Prompt{
			Label: "Ticket",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("ticket text is required")
				}
				return nil
			},
		}
		text, err = prompt.Run()
		if err != nil {
			return fmt.Errorf("reading ticket: %w", err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("ticket text is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.pipeline.RunTicket(ctx, pipeline.Ticket{Text: text, Metadata: metadata}, threadID)
	if err != nil {
		return fmt.Errorf("triage failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(os.Stdout, res)
	}

	a.printUsage()
	return nil
}

// parseMetadata turns key=value pairs into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// printResult writes the human-readable summary of a run: the decision and
// its rationale, the reply, any handoff and the ordered stage log.
func printResult(w io.Writer, res *pipeline.Result) {
	c, r := res.Classification, res.Routing

	fmt.Fprintf(w, "Thread:   %s", res.ThreadID)
	if res.Resumed {
		fmt.Fprint(w, " (resumed)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Intent:   %s, urgency %s (%.2f)\n", c.Intent, c.Urgency, c.Confidence)
	fmt.Fprintf(w, "Route:    %s (%.2f)", r.Route, r.Confidence)
	if r.Overridden {
		fmt.Fprintf(w, ", escalated from %s", r.ModelRoute)
	}
	fmt.Fprintln(w)
	if r.Rationale != "" {
		fmt.Fprintf(w, "Reason:   %s\n", r.Rationale)
	}

	fmt.Fprintf(w, "\n%s\n", res.FinalResponse)

	if res.Handoff != nil {
		fmt.Fprintf(w, "\n%s", render.HandoffMarkdown(res.Handoff))
	}

	if len(res.Logs) > 0 {
		fmt.Fprintln(w, "\nStages:")
		for i, entry := range res.Logs {
			fmt.Fprintf(w, "  %d. %s\n", i+1, entry)
		}
	}
}
