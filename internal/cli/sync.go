package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	syncengine "github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync artifacts with the remote object store",
}

var syncCheckCmd = &cobra.Command{
	Use:   "check <kind> <id>",
	Short: "Compare local and remote state of a dataset or model",
	Args:  cobra.ExactArgs(2),
	RunE:  runSyncCheck,
}

var syncUploadCmd = &cobra.Command{
	Use:   "upload <kind> <id>",
	Short: "Upload an item's local content to the remote store",
	Args:  cobra.ExactArgs(2),
	RunE:  runSyncUpload,
}

var syncDownloadCmd = &cobra.Command{
	Use:   "download <kind> <id>",
	Short: "Download an item's remote content",
	Long: `Download an item's remote content into the local storage root.

For datasets, --episodes restricts the transfer to the given episode
indices (metadata objects are always included) and --include-videos
adds the video objects, which are skipped by default when a selector
is used.`,
	Args: cobra.ExactArgs(2),
	RunE: runSyncDownload,
}

var syncPushManifestCmd = &cobra.Command{
	Use:   "push-manifest",
	Short: "Upload the local manifest to the remote store",
	RunE:  runSyncPushManifest,
}

var syncPullManifestCmd = &cobra.Command{
	Use:   "pull-manifest",
	Short: "Download the replicated manifest",
	Long: `Download the replicated manifest from the remote store.

By default the remote document replaces the local manifest. With
--merge entries are merged item by item: local-only entries always
survive, and a contested entry is taken from the remote side only when
its sidecar was updated more recently.`,
	RunE: runSyncPullManifest,
}

var syncProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Download every remote project missing locally",
	RunE:  runSyncProjects,
}

var (
	syncEpisodes      string
	syncIncludeVideos bool
	syncMerge         bool
)

func init() {
	syncDownloadCmd.Flags().StringVar(&syncEpisodes, "episodes", "", "Comma-separated episode indices (datasets only)")
	syncDownloadCmd.Flags().BoolVar(&syncIncludeVideos, "include-videos", false, "Include video objects in an --episodes download")
	syncPullManifestCmd.Flags().BoolVar(&syncMerge, "merge", false, "Merge into the local manifest instead of replacing it")

	syncCmd.AddCommand(syncCheckCmd)
	syncCmd.AddCommand(syncUploadCmd)
	syncCmd.AddCommand(syncDownloadCmd)
	syncCmd.AddCommand(syncPushManifestCmd)
	syncCmd.AddCommand(syncPullManifestCmd)
	syncCmd.AddCommand(syncProjectsCmd)
	rootCmd.AddCommand(syncCmd)
}

func parseKindArg(out *OutputWriter, command, arg string) (types.Kind, bool) {
	kind, ok := types.ParseKind(arg)
	if !ok {
		_ = out.WriteError(command, utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("unknown kind %q (want dataset, model or project)", arg)).Build())
		return "", false
	}
	return kind, true
}

func runSyncCheck(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "sync.check", args[0])
	if !ok {
		return nil
	}

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.check", err)
	}
	defer sc.Close()

	status, err := sc.engine.CheckSync(ctx, kind, args[1])
	if err != nil {
		return writeAppError(out, "sync.check", err)
	}
	return out.WriteSuccess("sync.check", status)
}

func runSyncUpload(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "sync.upload", args[0])
	if !ok {
		return nil
	}

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.upload", err)
	}
	defer sc.Close()

	if flags.DryRun {
		status, err := sc.engine.CheckSync(ctx, kind, args[1])
		if err != nil {
			return writeAppError(out, "sync.upload", err)
		}
		return out.WriteSuccess("sync.upload", map[string]interface{}{
			"dryRun": true,
			"status": status,
		})
	}

	ok, errMsg := sc.engine.UploadWithProgress(ctx, kind, args[1], progressReporter(out))
	if !ok {
		return out.WriteError("sync.upload", utils.NewCLIError(utils.ErrCodeRemoteUnavailable, errMsg).Build())
	}
	return out.WriteSuccess("sync.upload", map[string]interface{}{
		"kind": kind,
		"id":   args[1],
	})
}

func runSyncDownload(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	kind, ok := parseKindArg(out, "sync.download", args[0])
	if !ok {
		return nil
	}

	selector, err := parseSelector()
	if err != nil {
		return out.WriteError("sync.download", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	if selector != nil && kind != types.KindDataset {
		return out.WriteError("sync.download", utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"--episodes and --include-videos apply to datasets only").Build())
	}

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.download", err)
	}
	defer sc.Close()

	ok, errMsg := sc.engine.DownloadWithProgress(ctx, kind, args[1], selector, progressReporter(out))
	if !ok {
		return out.WriteError("sync.download", utils.NewCLIError(utils.ErrCodeRemoteUnavailable, errMsg).Build())
	}
	return out.WriteSuccess("sync.download", map[string]interface{}{
		"kind": kind,
		"id":   args[1],
	})
}

func parseSelector() (*syncengine.Selector, error) {
	// Without --episodes the transfer is full, videos included, so
	// --include-videos on its own changes nothing.
	if syncEpisodes == "" {
		return nil, nil
	}
	selector := &syncengine.Selector{IncludeVideos: syncIncludeVideos}
	for _, part := range strings.Split(syncEpisodes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid episode index %q", part)
		}
		selector.Episodes = append(selector.Episodes, n)
	}
	return selector, nil
}

func runSyncPushManifest(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.push-manifest", err)
	}
	defer sc.Close()

	if err := sc.engine.PushManifest(ctx); err != nil {
		return writeAppError(out, "sync.push-manifest", err)
	}
	return out.WriteSuccess("sync.push-manifest", map[string]interface{}{
		"pushed": true,
	})
}

func runSyncPullManifest(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.pull-manifest", err)
	}
	defer sc.Close()

	if err := sc.engine.PullManifest(ctx, syncMerge); err != nil {
		return writeAppError(out, "sync.pull-manifest", err)
	}
	return out.WriteSuccess("sync.pull-manifest", map[string]interface{}{
		"merged": syncMerge,
	})
}

func runSyncProjects(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := context.Background()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	sc, err := newSyncContext(ctx)
	if err != nil {
		return writeAppError(out, "sync.projects", err)
	}
	defer sc.Close()

	downloaded, err := sc.engine.SyncProjects(ctx)
	if err != nil {
		return writeAppError(out, "sync.projects", err)
	}
	if downloaded == nil {
		downloaded = []string{}
	}
	return out.WriteSuccess("sync.projects", map[string]interface{}{
		"downloaded": downloaded,
	})
}
