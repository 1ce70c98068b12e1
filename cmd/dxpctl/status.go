package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [deployment-id]",
	Short: "Show the status of a deployment",
	Long:  "dxpctl status <deployment-id> [--output json]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFmt, _ := cmd.Flags().GetString("output")

		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		rec, err := api.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(rec)
		}
		printRecord(rec)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("output", "", "Output format: json")
}
