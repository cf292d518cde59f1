package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "udahub",
	Short: "AI-assisted customer support ticket triage",
	Long: `udahub classifies incoming support tickets, routes them to a specialist
agent and drafts a reply using read-only lookups against the customer store
and a support knowledge base. Tickets the agents cannot resolve are escalated
to a human with a structured handoff.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.FileName, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

