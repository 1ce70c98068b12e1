package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Vinodh-Projects/dxp-component-builder/pkg/client"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build and deploy the project",
	Long:  "dxpctl deploy [--simple] [--wait]\n\nTriggers a background build and deploy. With --wait, polls the deployment\nuntil it finishes. With --simple, runs the fixed single-command build.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		simple, _ := cmd.Flags().GetBool("simple")
		wait, _ := cmd.Flags().GetBool("wait")

		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var ack client.DispatchAck
		if simple {
			ack, err = api.DeploySimpleBackground(ctx)
		} else {
			ack, err = api.Deploy(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Deployment started: %s\n", ack.DeploymentID)
		if ack.MavenCommand != "" {
			fmt.Printf("Command:            %s\n", ack.MavenCommand)
		}
		if !wait {
			fmt.Printf("Check progress with: dxpctl status %s\n", ack.DeploymentID)
			return nil
		}

		fmt.Println("Waiting for deployment to finish...")
		poller := client.NewPoller(api, cliLogger())
		rec, err := poller.Wait(ctx, ack.DeploymentID)
		if errors.Is(err, client.ErrPollTimeout) {
			fmt.Printf("Still running after polling window; check later with: dxpctl status %s\n", ack.DeploymentID)
			return nil
		}
		if err != nil {
			return err
		}
		printRecord(rec)
		if rec.Status == "failed" {
			return fmt.Errorf("deployment failed")
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().Bool("simple", false, "Run the fixed single-command build and deploy")
	deployCmd.Flags().Bool("wait", false, "Poll until the deployment reaches a terminal state")
}
