package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent transfers from the journal",
	RunE:  runHistory,
}

var (
	historyLimit int
	historyKind  string
	historyItem  string
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Filter by kind (dataset, model, project)")
	historyCmd.Flags().StringVar(&historyItem, "id", "", "Filter by item ID (requires --kind)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := loadAppConfig()
	if err != nil {
		return writeAppError(out, "history", err)
	}
	db := openJournal(cfg)
	if db == nil {
		return out.WriteSuccess("history", []interface{}{})
	}
	defer db.Close()

	if historyKind != "" && historyItem != "" {
		records, err := db.ListForItem(ctx, historyKind, historyItem, historyLimit)
		if err != nil {
			return writeAppError(out, "history", err)
		}
		return out.WriteSuccess("history", records)
	}

	records, err := db.List(ctx, historyLimit)
	if err != nil {
		return writeAppError(out, "history", err)
	}
	return out.WriteSuccess("history", records)
}
