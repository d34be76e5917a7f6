// Package migrate moves artifacts from the legacy flat remote layout
// into the versioned layout, and can rebuild the manifest from remote
// and local ground truth after loss.
package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync/journal"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// Engine copies legacy remote objects into the versioned layout. The
// legacy layout is always the unprefixed root of the bucket.
type Engine struct {
	store   *manifest.Store
	objects remote.ObjectStore
	layout  remote.Layout
	legacy  remote.Layout
	journal *journal.DB
	logger  logging.Logger
}

func New(store *manifest.Store, objects remote.ObjectStore, layout remote.Layout, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		store:   store,
		objects: objects,
		layout:  layout,
		legacy:  remote.NewLayout(""),
		logger:  logger,
	}
}

// WithJournal attaches a transfer journal.
func (e *Engine) WithJournal(db *journal.DB) *Engine {
	e.journal = db
	return e
}

// LegacyItem summarizes one item found under the legacy layout.
type LegacyItem struct {
	ID        string `json:"id"`
	SizeBytes int64  `json:"size_bytes"`
	FileCount int    `json:"file_count"`
}

// ListLegacyItems groups objects under the unversioned prefix for a
// kind by the first path segment after the kind directory.
func (e *Engine) ListLegacyItems(ctx context.Context, kind types.Kind) ([]LegacyItem, error) {
	prefix := e.legacy.KindPrefix(kind)
	infos, err := e.objects.List(ctx, prefix)
	if err != nil {
		return nil, utils.RemoteError("list", err)
	}

	byID := make(map[string]*LegacyItem)
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, prefix)
		id, _, found := strings.Cut(rest, "/")
		if !found || id == "" {
			continue
		}
		item, ok := byID[id]
		if !ok {
			item = &LegacyItem{ID: id}
			byID[id] = item
		}
		item.SizeBytes += info.Size
		item.FileCount++
	}

	items := make([]LegacyItem, 0, len(byID))
	for _, item := range byID {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// MigrateItem copies every legacy object of one item into the
// versioned layout and registers the item as remote-only. It returns
// success plus an error message; registration failure after a clean
// copy is logged, not surfaced.
func (e *Engine) MigrateItem(ctx context.Context, kind types.Kind, id string, onEvent types.ProgressFunc) (bool, string) {
	if err := e.migrateItem(ctx, kind, id, onEvent); err != nil {
		if onEvent != nil {
			onEvent(types.ProgressEvent{
				Type:   types.EventError,
				ItemID: id,
				Kind:   kind,
				Error:  err.Error(),
			})
		}
		return false, err.Error()
	}
	return true, ""
}

func (e *Engine) migrateItem(ctx context.Context, kind types.Kind, id string, onEvent types.ProgressFunc) error {
	// Nothing to migrate to without a version prefix.
	if e.layout.Prefix == "" {
		return nil
	}

	started := time.Now().UTC()
	legacyPrefix := e.legacy.ItemPrefix(kind, id)
	infos, err := e.objects.List(ctx, legacyPrefix)
	if err != nil {
		return utils.RemoteError("list", err)
	}
	if len(infos) == 0 {
		return utils.NotFoundError(kind, id)
	}

	var totalBytes int64
	for _, info := range infos {
		totalBytes += info.Size
	}
	emit(onEvent, types.ProgressEvent{
		Type:       types.EventStart,
		ItemID:     id,
		Kind:       kind,
		Target:     e.layout.ItemPrefix(kind, id),
		TotalFiles: len(infos),
		TotalBytes: totalBytes,
	})

	var copied int
	var copiedBytes int64
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			e.journalMigration(started, kind, id, copied, copiedBytes, err)
			return utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeCancelled,
				fmt.Sprintf("migration cancelled: %v", err)).Build())
		}

		rel := strings.TrimPrefix(info.Key, legacyPrefix)
		dstKey := e.layout.ObjectKey(kind, id, rel)
		emit(onEvent, types.ProgressEvent{
			Type:        types.EventCopying,
			ItemID:      id,
			Kind:        kind,
			CurrentFile: rel,
			FileBytes:   info.Size,
		})

		err := e.objects.Copy(ctx, info.Key, dstKey, info.Size, func(n int64) {
			copiedBytes += n
			emit(onEvent, types.ProgressEvent{
				Type:             types.EventProgress,
				ItemID:           id,
				Kind:             kind,
				CurrentFile:      rel,
				BytesTransferred: copiedBytes,
			})
		})
		if err != nil {
			e.journalMigration(started, kind, id, copied, copiedBytes, err)
			return utils.RemoteError("copy", err)
		}

		copied++
		emit(onEvent, types.ProgressEvent{
			Type:          types.EventCopied,
			ItemID:        id,
			Kind:          kind,
			CurrentFile:   rel,
			CopiedObjects: copied,
		})
	}

	// Objects are safely copied; a registration failure must not fail
	// the migration.
	if _, err := e.store.Register(e.fetchMetadata(ctx, kind, id), false); err != nil {
		e.logger.Warn("failed to register migrated item",
			logging.F("kind", string(kind)),
			logging.F("id", id),
			logging.F("error", err.Error()),
		)
	}

	emit(onEvent, types.ProgressEvent{
		Type:             types.EventComplete,
		ItemID:           id,
		Kind:             kind,
		TotalFiles:       len(infos),
		TotalBytes:       totalBytes,
		CopiedObjects:    copied,
		BytesTransferred: copiedBytes,
	})

	e.journalMigration(started, kind, id, copied, copiedBytes, nil)
	e.logger.Info("migrated item",
		logging.F("kind", string(kind)),
		logging.F("id", id),
		logging.F("objects", copied),
		logging.F("bytes", copiedBytes),
	)
	return nil
}

// ItemResult is the per-item outcome of a batch migration.
type ItemResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MigrateItems migrates each item independently; one failure never
// aborts the rest. With deleteLegacy the legacy objects of each
// successfully migrated item are removed afterwards; deletion failure
// is logged, not reported as a migration failure.
func (e *Engine) MigrateItems(ctx context.Context, kind types.Kind, ids []string, deleteLegacy bool, onEvent types.ProgressFunc) map[string]ItemResult {
	results := make(map[string]ItemResult, len(ids))
	for _, id := range ids {
		ok, errMsg := e.MigrateItem(ctx, kind, id, onEvent)
		results[id] = ItemResult{Success: ok, Error: errMsg}
		if !ok || !deleteLegacy {
			continue
		}
		if err := e.deleteLegacyObjects(ctx, kind, id); err != nil {
			e.logger.Warn("failed to delete legacy objects",
				logging.F("kind", string(kind)),
				logging.F("id", id),
				logging.F("error", err.Error()),
			)
		}
	}
	return results
}

func (e *Engine) deleteLegacyObjects(ctx context.Context, kind types.Kind, id string) error {
	infos, err := e.objects.List(ctx, e.legacy.ItemPrefix(kind, id))
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := e.objects.Delete(ctx, info.Key); err != nil {
			return err
		}
	}
	return nil
}

// fetchMetadata reads the sidecar from the versioned location when
// present, synthesizing minimal metadata otherwise.
func (e *Engine) fetchMetadata(ctx context.Context, kind types.Kind, id string) *types.Metadata {
	if data, err := e.objects.GetBytes(ctx, e.layout.SidecarKey(kind, id)); err == nil {
		if meta, err := manifest.ReadSidecarFile(data); err == nil {
			meta.ID = id
			meta.Kind = kind
			return meta
		}
	}

	meta := &types.Metadata{
		ID:     id,
		Kind:   kind,
		Source: types.SourceRemote,
		Status: types.StatusActive,
	}
	switch kind {
	case types.KindDataset:
		meta.Dataset = &types.DatasetInfo{}
	case types.KindModel:
		meta.Model = &types.ModelInfo{PolicyType: manifest.GuessPolicyType(id)}
	}
	return meta
}

func (e *Engine) journalMigration(started time.Time, kind types.Kind, id string, files int, bytes int64, opErr error) {
	if e.journal == nil {
		return
	}
	rec := journal.Record{
		Op:         "migrate",
		Kind:       string(kind),
		ItemID:     id,
		Files:      files,
		Bytes:      bytes,
		Success:    opErr == nil,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if opErr != nil {
		rec.Error = opErr.Error()
	}
	if err := e.journal.Append(context.Background(), rec); err != nil {
		e.logger.Warn("failed to journal migration",
			logging.F("id", id),
			logging.F("error", err.Error()),
		)
	}
}

func emit(fn types.ProgressFunc, ev types.ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
