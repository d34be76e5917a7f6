package sync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/sync/journal"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// emitter enforces the transfer event contract: one start first, one
// complete or error last, nothing after the terminal event. Failures
// before start emit nothing at all.
type emitter struct {
	fn      types.ProgressFunc
	started bool
	done    bool
}

func (em *emitter) emit(ev types.ProgressEvent) {
	if em.done || em.fn == nil {
		return
	}
	switch ev.Type {
	case types.EventStart:
		em.started = true
	case types.EventComplete, types.EventError:
		if !em.started {
			return
		}
		em.done = true
	}
	em.fn(ev)
}

type localFile struct {
	relPath string
	size    int64
}

type remoteObject struct {
	relPath string
	key     string
	size    int64
}

// listLocalFiles enumerates every regular file under dir, including
// the sidecar, as slash-relative paths. Symlinks are skipped.
func listLocalFiles(dir string) ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			relPath: filepath.ToSlash(rel),
			size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Upload transfers an item's full local content to the remote store.
func (e *Engine) Upload(ctx context.Context, kind types.Kind, id string) error {
	return e.upload(ctx, kind, id, &emitter{})
}

// UploadWithProgress uploads with progress events. It returns success
// plus an error message instead of an error; every failure is also
// delivered as an "error" event when the transfer already started.
func (e *Engine) UploadWithProgress(ctx context.Context, kind types.Kind, id string, onEvent types.ProgressFunc) (bool, string) {
	em := &emitter{fn: onEvent}
	if err := e.upload(ctx, kind, id, em); err != nil {
		em.emit(types.ProgressEvent{
			Type:   types.EventError,
			ItemID: id,
			Kind:   kind,
			Error:  err.Error(),
		})
		return false, err.Error()
	}
	return true, ""
}

func (e *Engine) upload(ctx context.Context, kind types.Kind, id string, em *emitter) error {
	if kind == types.KindProject {
		return e.uploadProject(ctx, id, em)
	}

	started := time.Now().UTC()

	// Refresh hash and stamp the sync time first so the sidecar that
	// goes over the wire already describes the content being uploaded.
	hash, _, err := e.store.RefreshHash(kind, id)
	if err != nil {
		return err
	}
	meta, err := e.store.Get(kind, id)
	if err != nil {
		return err
	}
	meta.Sync.LastSyncedAt = started.Format(time.RFC3339)
	if err := e.store.Update(meta); err != nil {
		return err
	}

	entry, ok := e.store.Entry(kind, id)
	if !ok {
		return utils.NotFoundError(kind, id)
	}
	localDir := e.store.AbsPath(entry.Path)

	files, err := listLocalFiles(localDir)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to enumerate %s: %v", localDir, err)).Build())
	}
	if len(files) == 0 {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("no local content for %s %s", kind, id)).Build())
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.size
	}

	em.emit(types.ProgressEvent{
		Type:       types.EventStart,
		ItemID:     id,
		Kind:       kind,
		Target:     e.layout.ItemPrefix(kind, id),
		TotalFiles: len(files),
		TotalBytes: totalBytes,
	})

	var transferred int64
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			e.journalTransfer(started, "upload", kind, id, i, transferred, err)
			return cancelledError(err)
		}

		em.emit(types.ProgressEvent{
			Type:        types.EventUploading,
			ItemID:      id,
			Kind:        kind,
			CurrentFile: f.relPath,
			FileBytes:   f.size,
		})

		key := e.layout.ObjectKey(kind, id, f.relPath)
		err := e.objects.Upload(ctx, filepath.Join(localDir, filepath.FromSlash(f.relPath)), key, func(n int64) {
			transferred += n
			em.emit(types.ProgressEvent{
				Type:             types.EventProgress,
				ItemID:           id,
				Kind:             kind,
				CurrentFile:      f.relPath,
				BytesTransferred: transferred,
			})
		})
		if err != nil {
			e.journalTransfer(started, "upload", kind, id, i, transferred, err)
			return utils.RemoteError("upload", err)
		}

		em.emit(types.ProgressEvent{
			Type:        types.EventUploaded,
			ItemID:      id,
			Kind:        kind,
			CurrentFile: f.relPath,
			FilesDone:   i + 1,
		})
	}

	em.emit(types.ProgressEvent{
		Type:             types.EventComplete,
		ItemID:           id,
		Kind:             kind,
		TotalFiles:       len(files),
		TotalBytes:       totalBytes,
		BytesTransferred: transferred,
	})

	e.journalTransfer(started, "upload", kind, id, len(files), transferred, nil)
	e.logger.Info("uploaded item",
		logging.F("kind", string(kind)),
		logging.F("id", id),
		logging.F("files", len(files)),
		logging.F("bytes", totalBytes),
		logging.F("hash", hash),
	)
	return nil
}

// Download transfers an item's remote content to the local store. A
// selector restricts dataset downloads to selected episodes.
func (e *Engine) Download(ctx context.Context, kind types.Kind, id string, sel *Selector) error {
	return e.download(ctx, kind, id, sel, &emitter{})
}

// DownloadWithProgress downloads with progress events and the same
// boundary contract as UploadWithProgress. An item that is unknown
// both locally and remotely fails before any event is emitted.
func (e *Engine) DownloadWithProgress(ctx context.Context, kind types.Kind, id string, sel *Selector, onEvent types.ProgressFunc) (bool, string) {
	em := &emitter{fn: onEvent}
	if err := e.download(ctx, kind, id, sel, em); err != nil {
		em.emit(types.ProgressEvent{
			Type:   types.EventError,
			ItemID: id,
			Kind:   kind,
			Error:  err.Error(),
		})
		return false, err.Error()
	}
	return true, ""
}

func (e *Engine) download(ctx context.Context, kind types.Kind, id string, sel *Selector, em *emitter) error {
	if kind == types.KindProject {
		return e.downloadProject(ctx, id, em)
	}

	started := time.Now().UTC()

	// Enumerate the remote object set before emitting anything so a
	// nonexistent item fails without a start event.
	infos, err := e.objects.List(ctx, e.layout.ItemPrefix(kind, id))
	if err != nil {
		return utils.RemoteError("list", err)
	}
	if len(infos) == 0 {
		return utils.NotFoundError(kind, id)
	}

	if _, ok := e.store.Entry(kind, id); !ok {
		if _, err := e.store.Register(e.remoteMetadata(ctx, kind, id), false); err != nil {
			return err
		}
	}
	entry, _ := e.store.Entry(kind, id)
	localDir := e.store.AbsPath(entry.Path)

	if kind != types.KindDataset {
		sel = nil
	}
	var selected []remoteObject
	var totalBytes int64
	for _, info := range infos {
		rel := e.layout.RelPath(kind, id, info.Key)
		if rel == "" {
			continue
		}
		if sel != nil && !sel.Matches(rel) {
			continue
		}
		selected = append(selected, remoteObject{relPath: rel, key: info.Key, size: info.Size})
		totalBytes += info.Size
	}
	if len(selected) == 0 {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument,
			fmt.Sprintf("selector matches no objects of %s %s", kind, id)).Build())
	}

	em.emit(types.ProgressEvent{
		Type:       types.EventStart,
		ItemID:     id,
		Kind:       kind,
		Target:     entry.Path,
		TotalFiles: len(selected),
		TotalBytes: totalBytes,
	})

	var transferred int64
	for i, obj := range selected {
		if err := ctx.Err(); err != nil {
			e.journalTransfer(started, "download", kind, id, i, transferred, err)
			return cancelledError(err)
		}

		em.emit(types.ProgressEvent{
			Type:        types.EventDownloading,
			ItemID:      id,
			Kind:        kind,
			CurrentFile: obj.relPath,
			FileBytes:   obj.size,
		})

		localPath := filepath.Join(localDir, filepath.FromSlash(obj.relPath))
		err := e.objects.Download(ctx, obj.key, localPath, func(n int64) {
			transferred += n
			em.emit(types.ProgressEvent{
				Type:             types.EventProgress,
				ItemID:           id,
				Kind:             kind,
				CurrentFile:      obj.relPath,
				BytesTransferred: transferred,
			})
		})
		if err != nil {
			e.journalTransfer(started, "download", kind, id, i, transferred, err)
			return utils.RemoteError("download", err)
		}

		em.emit(types.ProgressEvent{
			Type:        types.EventDownloaded,
			ItemID:      id,
			Kind:        kind,
			CurrentFile: obj.relPath,
			FilesDone:   i + 1,
		})
	}

	// Local content changed: refresh the recorded hash so the next
	// divergence check tells the truth.
	if _, _, err := e.store.RefreshHash(kind, id); err != nil {
		return err
	}
	meta, err := e.store.Get(kind, id)
	if err != nil {
		return err
	}
	meta.Sync.LastSyncedAt = time.Now().UTC().Format(time.RFC3339)
	if err := e.store.Update(meta); err != nil {
		return err
	}

	em.emit(types.ProgressEvent{
		Type:             types.EventComplete,
		ItemID:           id,
		Kind:             kind,
		TotalFiles:       len(selected),
		TotalBytes:       totalBytes,
		BytesTransferred: transferred,
	})

	e.journalTransfer(started, "download", kind, id, len(selected), transferred, nil)
	e.logger.Info("downloaded item",
		logging.F("kind", string(kind)),
		logging.F("id", id),
		logging.F("files", len(selected)),
		logging.F("bytes", totalBytes),
	)
	return nil
}

// UploadProject pushes a project's YAML config to the remote store.
func (e *Engine) UploadProject(ctx context.Context, id string) error {
	return e.uploadProject(ctx, id, &emitter{})
}

func (e *Engine) uploadProject(ctx context.Context, id string, em *emitter) error {
	started := time.Now().UTC()
	path := e.store.ProjectConfigPath(id)
	info, err := os.Stat(path)
	if err != nil {
		return utils.NotFoundError(types.KindProject, id)
	}

	em.emit(types.ProgressEvent{
		Type:       types.EventStart,
		ItemID:     id,
		Kind:       types.KindProject,
		Target:     e.layout.ProjectKey(id),
		TotalFiles: 1,
		TotalBytes: info.Size(),
	})

	if err := e.objects.Upload(ctx, path, e.layout.ProjectKey(id), nil); err != nil {
		e.journalTransfer(started, "upload", types.KindProject, id, 0, 0, err)
		return utils.RemoteError("upload", err)
	}

	if _, ok := e.store.Entry(types.KindProject, id); ok {
		if _, _, err := e.store.RefreshHash(types.KindProject, id); err != nil {
			return err
		}
	}

	em.emit(types.ProgressEvent{
		Type:             types.EventComplete,
		ItemID:           id,
		Kind:             types.KindProject,
		TotalFiles:       1,
		BytesTransferred: info.Size(),
	})
	e.journalTransfer(started, "upload", types.KindProject, id, 1, info.Size(), nil)
	return nil
}

// DownloadProject fetches a project's YAML config and registers it.
func (e *Engine) DownloadProject(ctx context.Context, id string) error {
	return e.downloadProject(ctx, id, &emitter{})
}

func (e *Engine) downloadProject(ctx context.Context, id string, em *emitter) error {
	started := time.Now().UTC()
	data, err := e.objects.GetBytes(ctx, e.layout.ProjectKey(id))
	if err != nil {
		return utils.NotFoundError(types.KindProject, id)
	}

	em.emit(types.ProgressEvent{
		Type:       types.EventStart,
		ItemID:     id,
		Kind:       types.KindProject,
		TotalFiles: 1,
		TotalBytes: int64(len(data)),
	})

	path := e.store.ProjectConfigPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to create %s: %v", filepath.Dir(path), err)).Build())
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to write %s: %v", path, err)).Build())
	}

	if _, ok := e.store.Entry(types.KindProject, id); !ok {
		meta := &types.Metadata{
			ID:     id,
			Kind:   types.KindProject,
			Source: types.SourceRemote,
			Status: types.StatusActive,
		}
		if _, err := e.store.Register(meta, false); err != nil {
			return err
		}
	}
	if _, _, err := e.store.RefreshHash(types.KindProject, id); err != nil {
		return err
	}

	em.emit(types.ProgressEvent{
		Type:             types.EventComplete,
		ItemID:           id,
		Kind:             types.KindProject,
		TotalFiles:       1,
		BytesTransferred: int64(len(data)),
	})
	e.journalTransfer(started, "download", types.KindProject, id, 1, int64(len(data)), nil)
	return nil
}

// ListRemoteProjects returns the IDs of project configs stored
// remotely, sorted.
func (e *Engine) ListRemoteProjects(ctx context.Context) ([]string, error) {
	infos, err := e.objects.List(ctx, e.layout.ProjectsPrefix())
	if err != nil {
		return nil, utils.RemoteError("list", err)
	}
	var ids []string
	for _, info := range infos {
		name := info.Key[strings.LastIndexByte(info.Key, '/')+1:]
		if strings.HasSuffix(name, ".yaml") {
			ids = append(ids, strings.TrimSuffix(name, ".yaml"))
		}
	}
	return ids, nil
}

// SyncProjects downloads every remote project that has no local
// config yet and returns the downloaded IDs.
func (e *Engine) SyncProjects(ctx context.Context) ([]string, error) {
	ids, err := e.ListRemoteProjects(ctx)
	if err != nil {
		return nil, err
	}
	var downloaded []string
	for _, id := range ids {
		if _, err := os.Stat(e.store.ProjectConfigPath(id)); err == nil {
			continue
		}
		if err := e.DownloadProject(ctx, id); err != nil {
			return downloaded, err
		}
		downloaded = append(downloaded, id)
	}
	return downloaded, nil
}

func (e *Engine) journalTransfer(started time.Time, op string, kind types.Kind, id string, files int, bytes int64, opErr error) {
	rec := journal.Record{
		Op:         op,
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
	e.record(context.Background(), rec)
}

func cancelledError(err error) error {
	return utils.NewAppError(utils.NewCLIError(
		utils.ErrCodeCancelled,
		fmt.Sprintf("transfer cancelled: %v", err)).Build())
}
