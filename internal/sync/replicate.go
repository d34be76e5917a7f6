package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// PushManifest uploads the full local manifest document to its
// well-known remote key, replacing whatever is stored there.
func (e *Engine) PushManifest(ctx context.Context) error {
	snapshot := e.store.Snapshot()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInternalError,
			fmt.Sprintf("failed to encode manifest: %v", err)).Build())
	}
	if err := e.objects.PutBytes(ctx, e.layout.ManifestKey(), data); err != nil {
		return utils.RemoteError("push manifest", err)
	}
	e.logger.Info("pushed manifest",
		logging.F("key", e.layout.ManifestKey()),
		logging.F("bytes", len(data)),
	)
	return nil
}

// PullManifest downloads the replicated manifest. With merge=false the
// local manifest is replaced wholesale; with merge=true entries are
// merged last-writer-wins (see mergeManifest). Entries that exist only
// locally always survive a merge.
func (e *Engine) PullManifest(ctx context.Context, merge bool) error {
	data, err := e.objects.GetBytes(ctx, e.layout.ManifestKey())
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeNotFound, "no remote manifest found").Build())
	}

	var incoming types.Manifest
	if err := json.Unmarshal(data, &incoming); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeCorrupt,
			fmt.Sprintf("remote manifest is unreadable: %v", err)).Build())
	}

	if !merge {
		if err := e.store.Replace(&incoming); err != nil {
			return err
		}
		e.logger.Info("replaced manifest from remote")
		return nil
	}
	return e.mergeManifest(ctx, &incoming)
}

// mergeManifest folds the incoming manifest into the local one. An
// incoming dataset or model not present locally is added. For an item
// present on both sides the incoming entry wins only when the remote
// sidecar's updatedAt is lexicographically greater than the local one;
// timestamps are ISO-8601 so the comparison is chronological. Ties
// keep the local entry. Projects are added only when missing.
func (e *Engine) mergeManifest(ctx context.Context, incoming *types.Manifest) error {
	merge := func(kind types.Kind, entries map[string]*types.Entry) error {
		for id, remoteEntry := range entries {
			if remoteEntry == nil {
				continue
			}
			local, ok := e.store.Entry(kind, id)
			if !ok {
				if err := e.store.SetEntry(kind, id, *remoteEntry); err != nil {
					return err
				}
				continue
			}
			if e.remoteIsNewer(ctx, kind, id) {
				merged := *remoteEntry
				// A merge is a manifest operation; never flip an
				// entry away from its local backing path.
				merged.Path = local.Path
				if err := e.store.SetEntry(kind, id, merged); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := merge(types.KindDataset, incoming.Datasets); err != nil {
		return err
	}
	if err := merge(types.KindModel, incoming.Models); err != nil {
		return err
	}

	for id, remoteEntry := range incoming.Projects {
		if remoteEntry == nil {
			continue
		}
		if _, ok := e.store.ProjectEntry(id); ok {
			continue
		}
		if err := e.store.SetEntry(types.KindProject, id, remoteEntry.Entry); err != nil {
			return err
		}
		for _, ds := range remoteEntry.Datasets {
			if _, ok := e.store.Entry(types.KindDataset, ds); ok {
				_ = e.store.LinkDataset(id, ds)
			}
		}
		for _, m := range remoteEntry.Models {
			if _, ok := e.store.Entry(types.KindModel, m); ok {
				_ = e.store.LinkModel(id, m)
			}
		}
	}

	e.logger.Info("merged manifest from remote")
	return nil
}

// remoteIsNewer compares sidecar updatedAt stamps for one contested
// item. Unknown remote stamps never win.
func (e *Engine) remoteIsNewer(ctx context.Context, kind types.Kind, id string) bool {
	data, err := e.objects.GetBytes(ctx, e.layout.SidecarKey(kind, id))
	if err != nil {
		return false
	}
	remoteMeta, err := manifest.ReadSidecarFile(data)
	if err != nil || remoteMeta.UpdatedAt == "" {
		return false
	}
	localMeta, err := e.store.Get(kind, id)
	if err != nil {
		return true
	}
	return remoteMeta.UpdatedAt > localMeta.UpdatedAt
}
