package cli

import (
	"context"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect and manage the local storage root",
}

var storageListCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List tracked items of a kind, filtered by source and status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStorageList,
}

var storageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item counts per storage section",
	RunE:  runStorageStats,
}

var storageArchiveCmd = &cobra.Command{
	Use:   "archive <kind> <id>",
	Short: "Move an item into the archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runStorageArchive,
}

var storageRestoreCmd = &cobra.Command{
	Use:   "restore <kind> <id>",
	Short: "Restore an archived item",
	Args:  cobra.ExactArgs(2),
	RunE:  runStorageRestore,
}

var storageRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rebuild the manifest from remote and local ground truth",
	Long: `Rebuild the dataset and model sections of the manifest from ground
truth: every item stored remotely under the versioned prefix, plus
every local directory holding content beyond its sidecar. Project
entries are preserved. Use this when the manifest file was lost or is
known to be stale.`,
	RunE: runStorageRegenerate,
}

var (
	storageListStatus string
	storageListSource string
)

func init() {
	storageListCmd.Flags().StringVar(&storageListStatus, "status", "active", "Status filter (active, archived, all)")
	storageListCmd.Flags().StringVar(&storageListSource, "source", "all", "Source filter (local, remote, hub, all)")

	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageStatsCmd)
	storageCmd.AddCommand(storageArchiveCmd)
	storageCmd.AddCommand(storageRestoreCmd)
	storageCmd.AddCommand(storageRegenerateCmd)
	rootCmd.AddCommand(storageCmd)
}

func runStorageList(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "storage.list", args[0])
	if !ok {
		return nil
	}

	var status types.Status
	switch storageListStatus {
	case "active":
		status = types.StatusActive
	case "archived":
		status = types.StatusArchived
	case "all":
		status = ""
	default:
		return out.WriteError("storage.list", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"invalid status filter (want active, archived or all)").Build())
	}

	var source types.Source
	switch storageListSource {
	case "local":
		source = types.SourceLocal
	case "remote":
		source = types.SourceRemote
	case "hub":
		source = types.SourceHub
	case "all":
		source = ""
	default:
		return out.WriteError("storage.list", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"invalid source filter (want local, remote, hub or all)").Build())
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return writeAppError(out, "storage.list", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return writeAppError(out, "storage.list", err)
	}

	items, err := store.List(kind, source, status)
	if err != nil {
		return writeAppError(out, "storage.list", err)
	}
	if items == nil {
		items = []*types.Metadata{}
	}
	return out.WriteSuccess("storage.list", items)
}

func runStorageStats(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := loadAppConfig()
	if err != nil {
		return writeAppError(out, "storage.stats", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return writeAppError(out, "storage.stats", err)
	}

	return out.WriteSuccess("storage.stats", store.Stats())
}

func runStorageArchive(cmd *cobra.Command, args []string) error {
	return runStorageTransition(args, "storage.archive")
}

func runStorageRestore(cmd *cobra.Command, args []string) error {
	return runStorageTransition(args, "storage.restore")
}

func runStorageTransition(args []string, command string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, command, args[0])
	if !ok {
		return nil
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return writeAppError(out, command, err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return writeAppError(out, command, err)
	}

	if command == "storage.archive" {
		err = store.Archive(kind, args[1])
	} else {
		err = store.Restore(kind, args[1])
	}
	if err != nil {
		return writeAppError(out, command, err)
	}

	meta, err := store.Get(kind, args[1])
	if err != nil {
		return writeAppError(out, command, err)
	}
	return out.WriteSuccess(command, meta)
}

func runStorageRegenerate(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	mc, err := newMigrateContext(ctx)
	if err != nil {
		return writeAppError(out, "storage.regenerate", err)
	}
	defer mc.Close()

	stats, err := mc.engine.RegenerateManifest(ctx, progressReporter(out))
	if err != nil {
		return writeAppError(out, "storage.regenerate", err)
	}
	return out.WriteSuccess("storage.regenerate", stats)
}
