package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serverStatusCmd = &cobra.Command{
	Use:   "server-status",
	Short: "Check whether the AEM server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		status, err := api.ServerStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Server:    %s\n", status.ServerURL)
		if status.ServerAvailable {
			fmt.Println("Available: yes")
		} else {
			fmt.Println("Available: no")
			if status.Error != "" {
				fmt.Printf("Error:     %s\n", status.Error)
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the deployment API configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		cfg, err := api.Config(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cfg)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the project layout and Maven toolchain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		result, err := api.Validate(cmd.Context())
		if err != nil {
			return err
		}
		if result.Valid {
			fmt.Println("Project is ready to deploy.")
			return nil
		}
		return fmt.Errorf("validation failed: %s", result.Error)
	},
}
