package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/phase"
	"github.com/sells-group/outreach-cli/pkg/apollo"
)

var (
	runBatchSize  int
	runTotal      int
	runIndustry   string
	runLocation   string
	runSize       string
	runJobTitles  []string
)

var runRootCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline stage",
}

var runDiscoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Search for new prospects and ingest them at phase discovered",
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

		result := orch.RunDiscovery(ctx, apollo.SearchQuery{
			CompanySize:  runSize,
			Industry:     runIndustry,
			Location:     runLocation,
			JobTitles:    runJobTitles,
			TotalRecords: runTotal,
		})
		return printResult(result)
	},
}

func newPhaseRunCmd(use, short string, source phase.Phase) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
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

			size := runBatchSize
			if size <= 0 {
				size = cfg.Batch.Size
			}
			result := orch.RunPhase(ctx, string(source), size)
			return printResult(result)
		},
	}
}

// printResult writes the batch result as JSON to stdout and surfaces
// batch-level failures as command errors.
func printResult(result model.Envelope[model.BatchResult]) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode result")
	}
	os.Stdout.Write(out)
	os.Stdout.WriteString("\n")

	if !result.OK {
		return eris.Errorf("batch failed: %s: %s", result.Code, result.Message)
	}
	zap.L().Info("run complete",
		zap.String("phase", result.Data.Phase),
		zap.Int("advanced", result.Data.Advanced),
		zap.Int("skipped_invalid", result.Data.SkippedInvalid),
		zap.Int("failed", result.Data.Failed),
		zap.Int("unchanged", result.Data.Unchanged),
	)
	return nil
}

func init() {
	runDiscoveryCmd.Flags().IntVar(&runTotal, "total", 25, "number of records to request from the search")
	runDiscoveryCmd.Flags().StringVar(&runIndustry, "industry", "", "industry keyword filter")
	runDiscoveryCmd.Flags().StringVar(&runLocation, "location", "", "prospect location filter")
	runDiscoveryCmd.Flags().StringVar(&runSize, "company-size", "", "company headcount range, e.g. 1-50")
	runDiscoveryCmd.Flags().StringSliceVar(&runJobTitles, "title", nil, "job title filter (repeatable)")

	research := newPhaseRunCmd("research", "Enrich discovered prospects", phase.Discovered)
	drafting := newPhaseRunCmd("drafting", "Draft emails for researched prospects", phase.Researched)
	sync := newPhaseRunCmd("sync", "Dispatch drafted prospects into the sequencing platform", phase.Drafted)
	for _, c := range []*cobra.Command{research, drafting, sync} {
		c.Flags().IntVar(&runBatchSize, "batch-size", 0, "max prospects to process (0 = config default)")
	}

	runRootCmd.AddCommand(runDiscoveryCmd, research, drafting, sync)
	rootCmd.AddCommand(runRootCmd)
}
