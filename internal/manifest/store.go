// Package manifest owns the local storage root: the manifest document
// tracking every dataset, model and project, the per-item sidecar
// metadata, and the directory layout they live in.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/content"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// Store manages the manifest document and item directories under one
// storage root. All read-modify-write cycles are serialized by an
// internal mutex; the manifest on disk is only ever replaced
// atomically.
type Store struct {
	mu       sync.Mutex
	basePath string
	manifest *types.Manifest
	logger   logging.Logger
}

// Open loads (or initializes) the manifest at basePath.
func Open(basePath string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	s := &Store{
		basePath: basePath,
		logger:   logger,
	}

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	s.manifest = m
	return s, nil
}

// BasePath returns the storage root.
func (s *Store) BasePath() string {
	return s.basePath
}

// ManifestPath returns the manifest file location.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.basePath, utils.ManifestFileName)
}

func (s *Store) load() (*types.Manifest, error) {
	data, err := os.ReadFile(s.ManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := types.NewManifest()
	if err := json.Unmarshal(data, m); err != nil {
		// An unreadable manifest must not brick the store; start fresh
		// and let the next save replace it.
		s.logger.Warn("failed to load manifest, creating new one",
			logging.F("path", s.ManifestPath()),
			logging.F("error", err.Error()),
		)
		return types.NewManifest(), nil
	}

	// Older manifests may omit sections entirely
	if m.Datasets == nil {
		m.Datasets = make(map[string]*types.Entry)
	}
	if m.Models == nil {
		m.Models = make(map[string]*types.Entry)
	}
	if m.Projects == nil {
		m.Projects = make(map[string]*types.ProjectEntry)
	}
	return m, nil
}

// Save persists the manifest atomically and bumps last_updated.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	s.manifest.LastUpdated = nowStamp()

	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn manifest
	tmp := s.ManifestPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, s.ManifestPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// InitDirs creates the standard directory layout under the root.
func (s *Store) InitDirs() error {
	dirs := []string{
		filepath.Join(utils.DatasetsDirName, string(types.SourceRemote)),
		filepath.Join(utils.DatasetsDirName, string(types.SourceHub)),
		filepath.Join(utils.DatasetsDirName, string(types.SourceLocal)),
		filepath.Join(utils.ModelsDirName, string(types.SourceRemote)),
		filepath.Join(utils.ModelsDirName, string(types.SourceHub)),
		filepath.Join(utils.ModelsDirName, string(types.SourceLocal)),
		utils.ProjectsDirName,
		filepath.Join(utils.ArchiveDirName, utils.DatasetsDirName),
		filepath.Join(utils.ArchiveDirName, utils.ModelsDirName),
		filepath.Join(utils.ArchiveDirName, utils.ProjectsDirName),
		utils.CacheDirName,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(s.basePath, d), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// entryPath is the manifest-relative path for an active item.
func entryPath(kind types.Kind, source types.Source, id string) string {
	if kind == types.KindProject {
		return path.Join(utils.ProjectsDirName, id+".yaml")
	}
	return path.Join(kind.Plural(), string(source), id)
}

// archivePath is the manifest-relative path for an archived item.
func archivePath(kind types.Kind, id string) string {
	if kind == types.KindProject {
		return path.Join(utils.ArchiveDirName, utils.ProjectsDirName, id+".yaml")
	}
	return path.Join(utils.ArchiveDirName, kind.Plural(), id)
}

// AbsPath resolves a manifest-relative path against the root.
func (s *Store) AbsPath(relPath string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(relPath))
}

// entryLocked returns the entry for (kind, id) without copying.
func (s *Store) entryLocked(kind types.Kind, id string) (*types.Entry, bool) {
	switch kind {
	case types.KindDataset:
		e, ok := s.manifest.Datasets[id]
		return e, ok
	case types.KindModel:
		e, ok := s.manifest.Models[id]
		return e, ok
	case types.KindProject:
		if pe, ok := s.manifest.Projects[id]; ok {
			return &pe.Entry, true
		}
	}
	return nil, false
}

func (s *Store) setEntryLocked(kind types.Kind, id string, e types.Entry) {
	switch kind {
	case types.KindDataset:
		s.manifest.Datasets[id] = &e
	case types.KindModel:
		s.manifest.Models[id] = &e
	case types.KindProject:
		if pe, ok := s.manifest.Projects[id]; ok {
			pe.Entry = e
			return
		}
		s.manifest.Projects[id] = &types.ProjectEntry{
			Entry:    e,
			Datasets: []string{},
			Models:   []string{},
		}
	}
}

func (s *Store) removeEntryLocked(kind types.Kind, id string) {
	switch kind {
	case types.KindDataset:
		delete(s.manifest.Datasets, id)
	case types.KindModel:
		delete(s.manifest.Models, id)
	case types.KindProject:
		delete(s.manifest.Projects, id)
	}
}

// Entry returns a copy of the manifest entry for (kind, id).
func (s *Store) Entry(kind types.Kind, id string) (types.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entryLocked(kind, id)
	if !ok {
		return types.Entry{}, false
	}
	return *e, true
}

// SetEntry stores an entry for (kind, id), preserving project links.
func (s *Store) SetEntry(kind types.Kind, id string, e types.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setEntryLocked(kind, id, e)
	return s.saveLocked()
}

// IDs lists item IDs of a kind, sorted.
func (s *Store) IDs(kind types.Kind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idsLocked(kind)
}

func (s *Store) idsLocked(kind types.Kind) []string {
	var ids []string
	switch kind {
	case types.KindDataset:
		for id := range s.manifest.Datasets {
			ids = append(ids, id)
		}
	case types.KindModel:
		for id := range s.manifest.Models {
			ids = append(ids, id)
		}
	case types.KindProject:
		for id := range s.manifest.Projects {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ProjectEntry returns a copy of a project's entry with its links.
func (s *Store) ProjectEntry(id string) (types.ProjectEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pe, ok := s.manifest.Projects[id]
	if !ok {
		return types.ProjectEntry{}, false
	}
	out := *pe
	out.Datasets = append([]string(nil), pe.Datasets...)
	out.Models = append([]string(nil), pe.Models...)
	return out, true
}

// Register adds an item to the manifest. With local=true the item
// directory is created and the sidecar written; with local=false only
// the manifest entry is recorded and no directories are touched.
func (s *Store) Register(meta *types.Metadata, local bool) (types.Entry, error) {
	if meta.ID == "" {
		return types.Entry{}, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument, "item ID is required").Build())
	}
	if !meta.Kind.Valid() {
		return types.Entry{}, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid kind: %s", meta.Kind)).Build())
	}
	if meta.Source == "" {
		meta.Source = types.SourceLocal
	}
	if meta.Status == "" {
		meta.Status = types.StatusActive
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = nowStamp()
	}
	meta.UpdatedAt = nowStamp()

	entry := types.Entry{
		Path:      entryPath(meta.Kind, meta.Source, meta.ID),
		Source:    meta.Source,
		Type:      meta.Subtype(),
		Hash:      meta.Sync.Hash,
		SizeBytes: meta.Sync.SizeBytes,
		Status:    meta.Status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if local && meta.Kind != types.KindProject {
		dir := s.AbsPath(entry.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.Entry{}, utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeLocalIO,
				fmt.Sprintf("failed to create %s: %v", dir, err)).Build())
		}
		if err := writeSidecar(dir, meta); err != nil {
			return types.Entry{}, err
		}
	}

	s.setEntryLocked(meta.Kind, meta.ID, entry)
	if err := s.saveLocked(); err != nil {
		return types.Entry{}, err
	}

	s.logger.Info("registered item",
		logging.F("kind", string(meta.Kind)),
		logging.F("id", meta.ID),
		logging.F("local", local),
	)
	return entry, nil
}

// Get loads an item's metadata. The sidecar is authoritative; when it
// is missing the metadata is synthesized from the manifest entry.
func (s *Store) Get(kind types.Kind, id string) (*types.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(kind, id)
	if !ok {
		return nil, utils.NotFoundError(kind, id)
	}

	if kind != types.KindProject {
		dir := s.AbsPath(entry.Path)
		if meta, err := readSidecar(dir); err == nil {
			return meta, nil
		}
	}

	return metadataFromEntry(kind, id, *entry), nil
}

// Update rewrites an item's sidecar and manifest entry.
func (s *Store) Update(meta *types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(meta.Kind, meta.ID)
	if !ok {
		return utils.NotFoundError(meta.Kind, meta.ID)
	}

	meta.UpdatedAt = nowStamp()

	if meta.Kind != types.KindProject {
		dir := s.AbsPath(entry.Path)
		if dirExists(dir) {
			if err := writeSidecar(dir, meta); err != nil {
				return err
			}
		}
	}

	entry.Type = meta.Subtype()
	entry.Hash = meta.Sync.Hash
	entry.SizeBytes = meta.Sync.SizeBytes
	entry.Status = meta.Status
	s.setEntryLocked(meta.Kind, meta.ID, *entry)
	return s.saveLocked()
}

// Archive moves an item into the archive area and marks it archived.
// Archiving an already-archived item is a no-op.
func (s *Store) Archive(kind types.Kind, id string) error {
	return s.transition(kind, id, types.StatusArchived)
}

// Restore moves an archived item back to its active location. It
// fails when the item is not archived.
func (s *Store) Restore(kind types.Kind, id string) error {
	return s.transition(kind, id, types.StatusActive)
}

func (s *Store) transition(kind types.Kind, id string, target types.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(kind, id)
	if !ok {
		return utils.NotFoundError(kind, id)
	}
	if target == types.StatusActive && entry.Status != types.StatusArchived {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInvalidArgument,
			fmt.Sprintf("cannot restore %s %s: status is %s, not archived", kind, id, entry.Status)).Build())
	}
	if entry.Status == target {
		return nil
	}

	var newPath string
	if target == types.StatusArchived {
		newPath = archivePath(kind, id)
	} else {
		newPath = entryPath(kind, entry.Source, id)
	}

	oldAbs := s.AbsPath(entry.Path)
	newAbs := s.AbsPath(newPath)
	if pathExists(oldAbs) {
		if err := os.MkdirAll(filepath.Dir(newAbs), 0755); err != nil {
			return utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeLocalIO,
				fmt.Sprintf("failed to prepare archive dir: %v", err)).Build())
		}
		if err := os.Rename(oldAbs, newAbs); err != nil {
			return utils.NewAppError(utils.NewCLIError(
				utils.ErrCodeLocalIO,
				fmt.Sprintf("failed to move %s: %v", entry.Path, err)).Build())
		}
	}

	entry.Path = newPath
	entry.Status = target
	s.setEntryLocked(kind, id, *entry)

	// Keep the sidecar in step with the entry
	if kind != types.KindProject && dirExists(newAbs) {
		if meta, err := readSidecar(newAbs); err == nil {
			meta.Status = target
			if target == types.StatusArchived {
				meta.ArchivedAt = nowStamp()
			} else {
				meta.ArchivedAt = ""
			}
			meta.UpdatedAt = nowStamp()
			if err := writeSidecar(newAbs, meta); err != nil {
				return err
			}
		}
	}

	if err := s.saveLocked(); err != nil {
		return err
	}

	s.logger.Info("item status changed",
		logging.F("kind", string(kind)),
		logging.F("id", id),
		logging.F("status", string(target)),
	)
	return nil
}

// RefreshHash recomputes content hash and size for an item directory
// and stores them in both sidecar and manifest entry.
func (s *Store) RefreshHash(kind types.Kind, id string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshHashLocked(kind, id)
}

func (s *Store) refreshHashLocked(kind types.Kind, id string) (string, int64, error) {
	entry, ok := s.entryLocked(kind, id)
	if !ok {
		return "", 0, utils.NotFoundError(kind, id)
	}

	abs := s.AbsPath(entry.Path)
	if !pathExists(abs) {
		return "", 0, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("no local content for %s %s", kind, id)).Build())
	}

	var hash string
	var size int64
	var err error
	if kind == types.KindProject {
		hash, size, err = hashFilePath(abs)
	} else {
		hash, err = content.HashTree(abs)
		if err == nil {
			size, err = content.TreeSize(abs)
		}
	}
	if err != nil {
		return "", 0, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to hash %s %s: %v", kind, id, err)).Build())
	}

	entry.Hash = hash
	entry.SizeBytes = size
	s.setEntryLocked(kind, id, *entry)

	if kind != types.KindProject {
		if meta, rerr := readSidecar(abs); rerr == nil {
			meta.Sync.Hash = hash
			meta.Sync.SizeBytes = size
			meta.UpdatedAt = nowStamp()
			if werr := writeSidecar(abs, meta); werr != nil {
				return "", 0, werr
			}
		}
	}

	if err := s.saveLocked(); err != nil {
		return "", 0, err
	}
	return hash, size, nil
}

// List returns metadata for all items of a kind, filtered by source
// and status ("" matches any), sorted by ID.
func (s *Store) List(kind types.Kind, source types.Source, status types.Status) ([]*types.Metadata, error) {
	s.mu.Lock()
	ids := s.idsLocked(kind)
	s.mu.Unlock()

	var out []*types.Metadata
	for _, id := range ids {
		meta, err := s.Get(kind, id)
		if err != nil {
			continue
		}
		if source != "" && meta.Source != source {
			continue
		}
		if status != "" && meta.Status != status {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

// LinkDataset records a dataset reference on a project.
func (s *Store) LinkDataset(projectID, datasetID string) error {
	return s.link(projectID, datasetID, types.KindDataset)
}

// LinkModel records a model reference on a project.
func (s *Store) LinkModel(projectID, modelID string) error {
	return s.link(projectID, modelID, types.KindModel)
}

func (s *Store) link(projectID, itemID string, kind types.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pe, ok := s.manifest.Projects[projectID]
	if !ok {
		return utils.NotFoundError(types.KindProject, projectID)
	}
	if _, ok := s.entryLocked(kind, itemID); !ok {
		return utils.NotFoundError(kind, itemID)
	}

	list := &pe.Datasets
	if kind == types.KindModel {
		list = &pe.Models
	}
	for _, existing := range *list {
		if existing == itemID {
			return nil
		}
	}
	*list = append(*list, itemID)
	return s.saveLocked()
}

// Snapshot returns a deep copy of the manifest document.
func (s *Store) Snapshot() *types.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := types.NewManifest()
	out.LastUpdated = s.manifest.LastUpdated
	for id, e := range s.manifest.Datasets {
		c := *e
		out.Datasets[id] = &c
	}
	for id, e := range s.manifest.Models {
		c := *e
		out.Models[id] = &c
	}
	for id, pe := range s.manifest.Projects {
		c := *pe
		c.Datasets = append([]string(nil), pe.Datasets...)
		c.Models = append([]string(nil), pe.Models...)
		out.Projects[id] = &c
	}
	return out
}

// Replace swaps in a new manifest document and persists it.
func (s *Store) Replace(m *types.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Datasets == nil {
		m.Datasets = make(map[string]*types.Entry)
	}
	if m.Models == nil {
		m.Models = make(map[string]*types.Entry)
	}
	if m.Projects == nil {
		m.Projects = make(map[string]*types.ProjectEntry)
	}
	s.manifest = m
	return s.saveLocked()
}

// ClearArtifacts drops all dataset and model entries, keeping
// projects. Used before manifest regeneration.
func (s *Store) ClearArtifacts() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.manifest.Datasets = make(map[string]*types.Entry)
	s.manifest.Models = make(map[string]*types.Entry)
	return s.saveLocked()
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
