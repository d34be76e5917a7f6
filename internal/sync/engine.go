// Package sync moves artifact content between the local storage root
// and the remote object store, tracking divergence through content
// hashes recorded in the manifest and sidecar files.
package sync

import (
	"context"
	"fmt"
	"os"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/content"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync/journal"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// Engine performs hash-based sync between the manifest store and an
// object store. All operations are synchronous; one item's objects are
// always transferred sequentially so progress events stay ordered.
type Engine struct {
	store   *manifest.Store
	objects remote.ObjectStore
	layout  remote.Layout
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
		logger:  logger,
	}
}

// WithJournal attaches a transfer journal. Journal failures are logged
// and never fail a transfer.
func (e *Engine) WithJournal(db *journal.DB) *Engine {
	e.journal = db
	return e
}

// CheckSync compares local and remote state for a dataset or model.
// The remote sidecar is the preferred source of the remote hash; when
// an item has objects but no sidecar the remote hash is unknown, which
// counts as differing in both directions and never as synced.
func (e *Engine) CheckSync(ctx context.Context, kind types.Kind, id string) (*types.SyncStatus, error) {
	if kind != types.KindDataset && kind != types.KindModel {
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument,
			fmt.Sprintf("sync status is not tracked for %s items", kind)).Build())
	}

	entry, ok := e.store.Entry(kind, id)
	if !ok {
		return nil, utils.NotFoundError(kind, id)
	}

	status := &types.SyncStatus{
		ID:     id,
		Kind:   kind,
		Source: entry.Source,
	}

	localDir := e.store.AbsPath(entry.Path)
	if info, err := os.Stat(localDir); err == nil && info.IsDir() {
		status.LocalExists = true
		hash, err := content.HashTree(localDir)
		if err != nil {
			return nil, utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeLocalIO,
				fmt.Sprintf("failed to hash %s: %v", localDir, err)).Build())
		}
		size, err := content.TreeSize(localDir)
		if err != nil {
			return nil, utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeLocalIO,
				fmt.Sprintf("failed to size %s: %v", localDir, err)).Build())
		}
		status.LocalHash = hash
		status.LocalSizeBytes = size
	}

	exists, hash, size, err := e.remoteState(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	status.RemoteExists = exists
	status.RemoteHash = hash
	status.RemoteSizeBytes = size

	hashesEqual := status.LocalHash != "" && status.RemoteHash != "" &&
		status.LocalHash == status.RemoteHash

	status.IsSynced = status.LocalExists && status.RemoteExists && hashesEqual
	status.NeedsUpload = status.LocalExists && (!status.RemoteExists || !hashesEqual)
	status.NeedsDownload = status.RemoteExists && (!status.LocalExists || !hashesEqual)

	return status, nil
}

// remoteState reads the remote sidecar when present, falling back to
// summing object sizes under the item prefix. A missing sidecar leaves
// the remote hash empty.
func (e *Engine) remoteState(ctx context.Context, kind types.Kind, id string) (exists bool, hash string, size int64, err error) {
	data, getErr := e.objects.GetBytes(ctx, e.layout.SidecarKey(kind, id))
	if getErr == nil {
		meta, parseErr := manifest.ReadSidecarFile(data)
		if parseErr == nil {
			return true, meta.Sync.Hash, meta.Sync.SizeBytes, nil
		}
		e.logger.Warn("remote sidecar is unreadable",
			logging.F("kind", string(kind)),
			logging.F("id", id),
			logging.F("error", parseErr.Error()),
		)
	}

	infos, listErr := e.objects.List(ctx, e.layout.ItemPrefix(kind, id))
	if listErr != nil {
		return false, "", 0, utils.RemoteError("list", listErr)
	}
	if len(infos) == 0 {
		return false, "", 0, nil
	}
	var total int64
	for _, info := range infos {
		total += info.Size
	}
	return true, "", total, nil
}

// remoteMetadata fetches the remote sidecar for an item, synthesizing
// minimal metadata when none is stored.
func (e *Engine) remoteMetadata(ctx context.Context, kind types.Kind, id string) *types.Metadata {
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

func (e *Engine) record(ctx context.Context, rec journal.Record) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(ctx, rec); err != nil {
		e.logger.Warn("failed to journal transfer",
			logging.F("op", rec.Op),
			logging.F("id", rec.ItemID),
			logging.F("error", err.Error()),
		)
	}
}
