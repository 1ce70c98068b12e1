package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [module]",
	Short: "Build a single module",
	Long:  "dxpctl build <module>\n\nBuilds one module of the project, for example core or ui.apps. Modules\nthat produce a content package are also deployed to the AEM server.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		result, err := api.BuildModule(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result.Success {
			fmt.Printf("Module %s built successfully\n", result.Module)
			if result.DeployOutput != "" {
				fmt.Println("Package deployed to AEM server")
			}
			return nil
		}
		if result.Error != "" {
			fmt.Printf("Error: %s\n", result.Error)
		}
		return fmt.Errorf("module %s build failed", result.Module)
	},
}
