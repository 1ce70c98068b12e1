package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List tracked deployments",
	Long:  "dxpctl history [--output json]",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFmt, _ := cmd.Flags().GetString("output")

		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		hist, err := api.History(cmd.Context())
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(hist)
		}
		if hist.TotalDeployments == 0 {
			fmt.Println("No deployments found.")
			return nil
		}
		ids := make([]string, 0, len(hist.Deployments))
		for id := range hist.Deployments {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Printf("%-40s  %-12s  %-8s  %s\n", "DEPLOYMENT ID", "STATUS", "DURATION", "STARTED")
		fmt.Println(strings.Repeat("─", 90))
		for _, id := range ids {
			rec := hist.Deployments[id]
			duration := "-"
			if rec.Duration > 0 {
				duration = fmt.Sprintf("%.1fs", rec.Duration)
			}
			started := "-"
			if rec.StartedAt != nil {
				started = rec.StartedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-40s  %-12s  %-8s  %s\n", rec.ID, rec.Status, duration, started)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [deployment-id]",
	Short: "Clear a deployment record",
	Long:  "dxpctl delete <deployment-id>\n\nRemoves the record from the history. The id becomes unknown afterwards.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		if err := api.DeleteResult(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deployment result %s cleared\n", args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().String("output", "", "Output format: json")
}
