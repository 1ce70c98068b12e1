package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "dxpctl",
	Short:        "DXP Component Builder deployment CLI",
	Long:         "dxpctl drives the deployment API: trigger builds, watch their progress\nand inspect the target AEM server.",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.PersistentFlags().String("api", "", "Deployment API base URL (or DXP_API env var, default http://localhost:8000)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serverStatusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
