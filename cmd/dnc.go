package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/compliance"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sheet"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

var dncFile string

var dncCmd = &cobra.Command{
	Use:   "dnc",
	Short: "Manage the do-not-contact list",
}

var dncSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load a do-not-contact list file into the DNC database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Notion.DNCDB == "" {
			return eris.New("notion.dnc_db is not configured")
		}

		content, err := os.ReadFile(dncFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", dncFile)
		}
		emails, err := compliance.ParseList(string(content))
		if err != nil {
			return eris.Wrap(err, "parse dnc list")
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(float64(cfg.Notion.RateLimit)))
		dnc := sheet.NewNotionStore(client, cfg.Notion.DNCDB)

		var synced int
		for _, email := range emails {
			key := model.NaturalKey(email)
			if _, err := dnc.Upsert(ctx, key, map[string]any{"email": email}); err != nil {
				zap.L().Warn("could not sync dnc entry", zap.String("email", email), zap.Error(err))
				continue
			}
			synced++
		}

		fmt.Printf("synced %d of %d do-not-contact entries\n", synced, len(emails))
		return nil
	},
}

func init() {
	dncSyncCmd.Flags().StringVar(&dncFile, "file", "dnc.txt", "path to the do-not-contact list (one email per line)")
	dncCmd.AddCommand(dncSyncCmd)
	rootCmd.AddCommand(dncCmd)
}
