package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/phase"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show funnel counts and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runs, err := initJournal(ctx)
		if err != nil {
			return eris.Wrap(err, "init journal")
		}
		defer runs.Close()

		orch, err := initOrchestrator(runs)
		if err != nil {
			return err
		}

		counts, err := orch.FunnelCounts(ctx)
		if err != nil {
			return eris.Wrap(err, "read funnel counts")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PHASE\tPROSPECTS")
		for _, p := range phase.All() {
			fmt.Fprintf(w, "%s\t%d\n", p, counts[string(p)])
		}
		w.Flush()

		recent, err := runs.ListRuns(ctx, statusRuns)
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		if len(recent) == 0 {
			fmt.Println("\nno recorded runs")
			return nil
		}

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tPHASE\tSTARTED\tADVANCED\tSKIPPED\tFAILED\tUNCHANGED")
		for _, r := range recent {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				r.ID, r.Phase, r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Result.Advanced, r.Result.SkippedInvalid, r.Result.Failed, r.Result.Unchanged)
		}
		w.Flush()
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
