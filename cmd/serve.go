package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/udahub/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the customer lookups, knowledge search and ticket triage as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(context.Background(), cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "udahub MCP server started on stdio (store=%s)\n", cfg.StorePath)

		srv := mcpserver.NewServer(a.gateway, a.pipeline)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
