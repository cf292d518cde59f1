package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/udahub/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize udahub configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, knowledge backend and checkpoint store, and writes a .udahub.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
