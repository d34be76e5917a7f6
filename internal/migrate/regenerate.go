package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/content"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// RegenerateManifest rebuilds the dataset and model sections of the
// manifest from ground truth: first every item found under the
// versioned remote prefix, then every local directory holding content
// beyond its sidecar. Project entries are left untouched. Returns
// registration counts per category.
func (e *Engine) RegenerateManifest(ctx context.Context, onEvent types.ProgressFunc) (map[string]int, error) {
	if err := e.store.ClearArtifacts(); err != nil {
		return nil, err
	}

	stats := map[string]int{
		"datasets_remote": 0,
		"models_remote":   0,
		"datasets_local":  0,
		"models_local":    0,
	}

	for _, kind := range []types.Kind{types.KindDataset, types.KindModel} {
		prefix := e.layout.KindPrefix(kind)
		emit(onEvent, types.ProgressEvent{
			Type:   types.EventScanning,
			Kind:   kind,
			Target: prefix,
		})

		ids, err := e.listRemoteIDs(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := e.store.Register(e.fetchMetadata(ctx, kind, id), false); err != nil {
				e.logger.Warn("failed to register remote item",
					logging.F("kind", string(kind)),
					logging.F("id", id),
					logging.F("error", err.Error()),
				)
				continue
			}
			stats[kind.Plural()+"_remote"]++
			emit(onEvent, types.ProgressEvent{
				Type:   types.EventRegistered,
				ItemID: id,
				Kind:   kind,
				Target: string(types.SourceRemote),
			})
		}
	}

	for _, kind := range []types.Kind{types.KindDataset, types.KindModel} {
		emit(onEvent, types.ProgressEvent{
			Type:   types.EventScanning,
			Kind:   kind,
			Target: kind.Plural(),
		})
		count, err := e.scanLocal(ctx, kind, onEvent)
		if err != nil {
			return nil, err
		}
		stats[kind.Plural()+"_local"] = count
	}

	emit(onEvent, types.ProgressEvent{
		Type:  types.EventComplete,
		Stats: stats,
	})
	e.logger.Info("regenerated manifest",
		logging.F("datasets_remote", stats["datasets_remote"]),
		logging.F("models_remote", stats["models_remote"]),
		logging.F("datasets_local", stats["datasets_local"]),
		logging.F("models_local", stats["models_local"]),
	)
	return stats, nil
}

// listRemoteIDs groups versioned objects of a kind by item ID.
func (e *Engine) listRemoteIDs(ctx context.Context, kind types.Kind) ([]string, error) {
	prefix := e.layout.KindPrefix(kind)
	infos, err := e.objects.List(ctx, prefix)
	if err != nil {
		return nil, utils.RemoteError("list", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, prefix)
		id, _, found := strings.Cut(rest, "/")
		if !found || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// scanLocal registers every local item directory holding content
// beyond the sidecar, skipping IDs already discovered remotely.
func (e *Engine) scanLocal(ctx context.Context, kind types.Kind, onEvent types.ProgressFunc) (int, error) {
	var count int
	for _, source := range []types.Source{types.SourceRemote, types.SourceHub, types.SourceLocal} {
		dir := filepath.Join(e.store.BasePath(), kind.Plural(), string(source))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, de := range entries {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if !de.IsDir() {
				continue
			}
			id := de.Name()
			if _, ok := e.store.Entry(kind, id); ok {
				continue
			}
			itemDir := filepath.Join(dir, id)
			if !content.HasContent(itemDir) {
				continue
			}

			meta := e.localMetadata(kind, id, source, itemDir)
			if _, err := e.store.Register(meta, false); err != nil {
				e.logger.Warn("failed to register local item",
					logging.F("kind", string(kind)),
					logging.F("id", id),
					logging.F("error", err.Error()),
				)
				continue
			}
			if _, _, err := e.store.RefreshHash(kind, id); err != nil {
				e.logger.Warn("failed to hash local item",
					logging.F("kind", string(kind)),
					logging.F("id", id),
					logging.F("error", err.Error()),
				)
			}
			count++
			emit(onEvent, types.ProgressEvent{
				Type:   types.EventRegistered,
				ItemID: id,
				Kind:   kind,
				Target: string(source),
			})
		}
	}
	return count, nil
}

// localMetadata prefers the on-disk sidecar, synthesizing metadata
// only when the directory has none.
func (e *Engine) localMetadata(kind types.Kind, id string, source types.Source, dir string) *types.Metadata {
	if data, err := os.ReadFile(manifest.SidecarPath(dir)); err == nil {
		if meta, err := manifest.ReadSidecarFile(data); err == nil {
			meta.ID = id
			meta.Kind = kind
			meta.Source = source
			return meta
		}
	}

	meta := &types.Metadata{
		ID:     id,
		Kind:   kind,
		Source: source,
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
