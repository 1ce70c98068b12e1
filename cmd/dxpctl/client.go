package main

import (
	"encoding/json"
	"fmt"
	"os"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Vinodh-Projects/dxp-component-builder/pkg/client"
)

// newAPIClient builds a client from the --api flag or DXP_API env var.
func newAPIClient(cmd *cobra.Command) (*client.Client, error) {
	base, _ := cmd.Flags().GetString("api")
	if base == "" {
		base = os.Getenv("DXP_API")
	}
	return client.New(base)
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printRecord(rec client.DeploymentRecord) {
	fmt.Printf("Deployment: %s\n", rec.ID)
	fmt.Printf("Status:     %s\n", rec.Status)
	if rec.Success != nil {
		fmt.Printf("Success:    %t\n", *rec.Success)
	}
	if rec.Message != "" {
		fmt.Printf("Message:    %s\n", rec.Message)
	}
	if rec.Step != "" {
		fmt.Printf("Step:       %s\n", rec.Step)
	}
	if rec.Duration > 0 {
		fmt.Printf("Duration:   %.1fs\n", rec.Duration)
	}
	if len(rec.DeployedPackages) > 0 {
		fmt.Println("Packages:")
		for _, pkg := range rec.DeployedPackages {
			fmt.Printf("  - %s\n", pkg)
		}
	}
	if rec.Error != "" {
		fmt.Printf("Error:      %s\n", rec.Error)
	}
}
