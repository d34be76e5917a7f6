package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/config"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/migrate"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
	syncengine "github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync/journal"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// loadAppConfig loads the configuration file and applies flag
// overrides.
func loadAppConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globalFlags.Config != "" {
		cfg, err = config.LoadFrom(globalFlags.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if globalFlags.DataDir != "" {
		cfg.DataDir = globalFlags.DataDir
	}
	return cfg, nil
}

// openStore opens the manifest store at the configured data root.
func openStore(cfg *config.Config) (*manifest.Store, error) {
	store, err := manifest.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	if err := store.InitDirs(); err != nil {
		return nil, err
	}
	return store, nil
}

// openObjectStore builds the S3 client for the configured bucket.
// Credentials come from the environment when set, otherwise from the
// per-profile credential store. Request timeouts and the retry policy
// come from the config. With --debug every HTTP request is logged
// through the debug transport.
func openObjectStore(ctx context.Context, cfg *config.Config) (remote.ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument,
			"no bucket configured; set bucket in config or PHI_BUCKET").Build())
	}

	creds := remote.LoadFromEnv()
	if creds == nil {
		profile := globalFlags.Profile
		if profile == "" {
			profile = cfg.DefaultProfile
		}
		configDir, err := config.GetConfigDir()
		if err != nil {
			return nil, err
		}
		stored, err := remote.NewCredentialStore(configDir).Load(profile)
		if err != nil {
			// No stored credentials; let the SDK default chain try.
			logger.Debug("no stored credentials for profile",
				logging.F("profile", profile),
				logging.F("error", err.Error()),
			)
		} else {
			creds = stored
		}
	}

	httpClient := &http.Client{
		Timeout: cfg.GetRequestTimeout(),
	}
	if globalFlags.Debug {
		httpClient.Transport = logging.NewDebugTransport(logger, http.DefaultTransport)
	}

	return remote.NewS3Store(ctx, remote.S3Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		Credentials:    creds,
		HTTPClient:     httpClient,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.GetRetryBaseDelay(),
	}, logger)
}

// openJournal opens the transfer journal under the cache directory. A
// journal failure is never fatal; callers get nil and transfers
// simply go unrecorded.
func openJournal(cfg *config.Config) *journal.DB {
	path := filepath.Join(cfg.DataDir, utils.CacheDirName, utils.JournalFileName)
	db, err := journal.Open(path)
	if err != nil {
		logger.Warn("failed to open transfer journal",
			logging.F("path", path),
			logging.F("error", err.Error()),
		)
		return nil
	}
	return db
}

// syncContext bundles everything a sync command needs.
type syncContext struct {
	cfg     *config.Config
	store   *manifest.Store
	engine  *syncengine.Engine
	journal *journal.DB
}

func (s *syncContext) Close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
}

func newSyncContext(ctx context.Context) (*syncContext, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := syncengine.New(store, objects, remote.NewLayout(cfg.VersionPrefix), logger)
	db := openJournal(cfg)
	if db != nil {
		engine.WithJournal(db)
	}
	return &syncContext{cfg: cfg, store: store, engine: engine, journal: db}, nil
}

// migrateContext bundles everything a migrate command needs.
type migrateContext struct {
	cfg     *config.Config
	store   *manifest.Store
	engine  *migrate.Engine
	journal *journal.DB
}

func (m *migrateContext) Close() {
	if m.journal != nil {
		_ = m.journal.Close()
	}
}

func newMigrateContext(ctx context.Context) (*migrateContext, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := migrate.New(store, objects, remote.NewLayout(cfg.VersionPrefix), logger)
	db := openJournal(cfg)
	if db != nil {
		engine.WithJournal(db)
	}
	return &migrateContext{cfg: cfg, store: store, engine: engine, journal: db}, nil
}

// writeAppError maps an error onto the CLI error envelope, keeping
// stable codes and exit codes for AppErrors.
func writeAppError(out *OutputWriter, command string, err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		_ = out.WriteError(command, appErr.CLIError)
		os.Exit(utils.GetExitCode(appErr.CLIError.Code))
	}
	return out.WriteError(command, utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build())
}

// progressReporter logs transfer events as human lines on stderr.
// Byte-level progress events are skipped; per-file events are enough
// for a terminal.
func progressReporter(out *OutputWriter) types.ProgressFunc {
	return func(ev types.ProgressEvent) {
		switch ev.Type {
		case types.EventStart:
			out.Log("%s %s: %d files, %s", ev.Kind, ev.ItemID, ev.TotalFiles, formatSize(ev.TotalBytes))
		case types.EventUploading, types.EventDownloading, types.EventCopying:
			out.Verbose("%s %s", ev.Type, ev.CurrentFile)
		case types.EventUploaded, types.EventDownloaded:
			out.Log("  %s %s (%d done)", ev.Type, truncate(ev.CurrentFile, 60), ev.FilesDone)
		case types.EventCopied:
			out.Log("  copied %s (%d done)", truncate(ev.CurrentFile, 60), ev.CopiedObjects)
		case types.EventRegistered:
			out.Log("  registered %s %s (%s)", ev.Kind, ev.ItemID, ev.Target)
		case types.EventScanning:
			out.Log("scanning %s", ev.Target)
		case types.EventComplete:
			out.Log("done: %d files, %s", ev.TotalFiles, formatSize(ev.BytesTransferred))
		case types.EventError:
			out.Log("error: %s", ev.Error)
		}
	}
}
