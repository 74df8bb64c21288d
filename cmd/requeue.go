package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var requeueTarget string

var requeueCmd = &cobra.Command{
	Use:   "requeue <email>",
	Short: "Reset a failed prospect back to a processable phase",
	Long:  "Requeue is the only path out of the failed phase. It resets the prospect to the target phase and clears its stored failure so the next run picks it up again.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		orch, err := initOrchestrator(nil)
		if err != nil {
			return err
		}

		result := orch.Requeue(ctx, args[0], requeueTarget)
		if !result.OK {
			return eris.Errorf("requeue failed: %s: %s", result.Code, result.Message)
		}
		fmt.Printf("requeued %s to %s\n", args[0], result.Data)
		return nil
	},
}

func init() {
	requeueCmd.Flags().StringVar(&requeueTarget, "to", "discovered", "phase to reset the prospect to")
	rootCmd.AddCommand(requeueCmd)
}
