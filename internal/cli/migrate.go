package cli

import (
	"context"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy remote objects into the versioned layout",
}

var migrateListCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List items still stored under the legacy layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrateList,
}

var migrateRunCmd = &cobra.Command{
	Use:   "run <kind> [id...]",
	Short: "Copy legacy items into the versioned layout",
	Long: `Copy legacy items into the versioned layout and register them in the
manifest. Without explicit IDs every legacy item of the kind is
migrated. Items are migrated independently; one failure never aborts
the rest. With --delete-legacy the old objects of each successfully
migrated item are removed afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMigrateRun,
}

var migrateDeleteLegacy bool

func init() {
	migrateRunCmd.Flags().BoolVar(&migrateDeleteLegacy, "delete-legacy", false, "Delete legacy objects after a successful migration")

	migrateCmd.AddCommand(migrateListCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateList(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "migrate.list", args[0])
	if !ok {
		return nil
	}

	mc, err := newMigrateContext(ctx)
	if err != nil {
		return writeAppError(out, "migrate.list", err)
	}
	defer mc.Close()

	items, err := mc.engine.ListLegacyItems(ctx, kind)
	if err != nil {
		return writeAppError(out, "migrate.list", err)
	}
	return out.WriteSuccess("migrate.list", items)
}

func runMigrateRun(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "migrate.run", args[0])
	if !ok {
		return nil
	}

	mc, err := newMigrateContext(ctx)
	if err != nil {
		return writeAppError(out, "migrate.run", err)
	}
	defer mc.Close()

	ids := args[1:]
	if len(ids) == 0 {
		items, err := mc.engine.ListLegacyItems(ctx, kind)
		if err != nil {
			return writeAppError(out, "migrate.run", err)
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return out.WriteSuccess("migrate.run", map[string]interface{}{
			"migrated": 0,
		})
	}

	if flags.DryRun {
		return out.WriteSuccess("migrate.run", map[string]interface{}{
			"dryRun": true,
			"ids":    ids,
		})
	}

	results := mc.engine.MigrateItems(ctx, kind, ids, migrateDeleteLegacy, progressReporter(out))

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	if failed == len(results) {
		return out.WriteError("migrate.run", utils.NewCLIError(utils.ErrCodeRemoteUnavailable,
			"every migration failed").WithContext("results", results).Build())
	}
	if failed > 0 {
		out.AddWarning(utils.ErrCodeBatchPartialFailure, "some items failed to migrate", "warning")
	}
	return out.WriteSuccess("migrate.run", results)
}
