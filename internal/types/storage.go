package types

import "strconv"

// Kind identifies the class of artifact tracked by the manifest.
type Kind string

const (
	KindDataset Kind = "dataset"
	KindModel   Kind = "model"
	KindProject Kind = "project"
)

// Plural returns the directory and manifest-section name for the kind.
func (k Kind) Plural() string {
	switch k {
	case KindDataset:
		return "datasets"
	case KindModel:
		return "models"
	case KindProject:
		return "projects"
	}
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDataset, KindModel, KindProject:
		return true
	}
	return false
}

// ParseKind accepts both singular and plural spellings.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "dataset", "datasets":
		return KindDataset, true
	case "model", "models":
		return KindModel, true
	case "project", "projects":
		return KindProject, true
	}
	return "", false
}

// Source identifies where an artifact originated.
type Source string

const (
	SourceRemote Source = "r2"
	SourceHub    Source = "hub"
	SourceLocal  Source = "local"
)

func (s Source) Valid() bool {
	switch s {
	case SourceRemote, SourceHub, SourceLocal:
		return true
	}
	return false
}

// Status is the lifecycle state of a manifest entry.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Entry is a single manifest record. Path is always relative to the
// storage root, using forward slashes.
type Entry struct {
	Path      string `json:"path"`
	Source    Source `json:"source"`
	Type      string `json:"type,omitempty"`
	Hash      string `json:"hash,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Status    Status `json:"status"`
}

// ProjectEntry extends Entry with links to the datasets and models the
// project references.
type ProjectEntry struct {
	Entry
	Datasets []string `json:"datasets"`
	Models   []string `json:"models"`
}

// Manifest is the on-disk manifest document. Maps are keyed by item ID.
type Manifest struct {
	LastUpdated string                   `json:"last_updated"`
	Datasets    map[string]*Entry        `json:"datasets"`
	Models      map[string]*Entry        `json:"models"`
	Projects    map[string]*ProjectEntry `json:"projects"`
}

// NewManifest returns an empty manifest with all sections allocated.
func NewManifest() *Manifest {
	return &Manifest{
		Datasets: make(map[string]*Entry),
		Models:   make(map[string]*Entry),
		Projects: make(map[string]*ProjectEntry),
	}
}

// SyncInfo is the sync block inside a sidecar metadata file.
type SyncInfo struct {
	Hash         string `json:"hash,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}

// DatasetInfo holds dataset-specific sidecar fields.
type DatasetInfo struct {
	DatasetType  string `json:"dataset_type,omitempty"`
	EpisodeCount int    `json:"episode_count,omitempty"`
	RobotType    string `json:"robot_type,omitempty"`
	FPS          int    `json:"fps,omitempty"`
}

// ModelInfo holds model-specific sidecar fields.
type ModelInfo struct {
	ModelType          string `json:"model_type,omitempty"`
	PolicyType         string `json:"policy_type,omitempty"`
	TrainedFromDataset string `json:"trained_from_dataset,omitempty"`
	TrainingSteps      int64  `json:"training_steps,omitempty"`
}

// Metadata is a sidecar record (.meta.json) stored alongside an
// artifact's content. Exactly one of Dataset or Model is set for the
// corresponding kind; both are nil for projects.
type Metadata struct {
	ID         string       `json:"id"`
	Kind       Kind         `json:"kind"`
	Name       string       `json:"name,omitempty"`
	Source     Source       `json:"source"`
	Status     Status       `json:"status"`
	CreatedAt  string       `json:"created_at,omitempty"`
	UpdatedAt  string       `json:"updated_at,omitempty"`
	ArchivedAt string       `json:"archived_at,omitempty"`
	Dataset    *DatasetInfo `json:"dataset,omitempty"`
	Model      *ModelInfo   `json:"model,omitempty"`
	Sync       SyncInfo     `json:"sync"`
}

// Subtype returns the free-form type string recorded in the manifest
/// entry: the dataset type for datasets, the model type for models.
func (m *Metadata) Subtype() string {
	switch {
	case m.Dataset != nil:
		return m.Dataset.DatasetType
	case m.Model != nil:
		return m.Model.ModelType
	}
	return ""
}

// SyncStatus is the result of comparing a local artifact against its
// remote counterpart.
type SyncStatus struct {
	ID              string `json:"id"`
	Kind            Kind   `json:"kind"`
	Source          Source `json:"source"`
	LocalExists     bool   `json:"local_exists"`
	RemoteExists    bool   `json:"remote_exists"`
	LocalHash       string `json:"local_hash,omitempty"`
	RemoteHash      string `json:"remote_hash,omitempty"`
	LocalSizeBytes  int64  `json:"local_size_bytes"`
	RemoteSizeBytes int64  `json:"remote_size_bytes"`
	IsSynced        bool   `json:"is_synced"`
	NeedsUpload     bool   `json:"needs_upload"`
	NeedsDownload   bool   `json:"needs_download"`
}

// StorageStats aggregates manifest entries by locality and status.
// An active entry counts as local when its directory holds files
// beyond the sidecar, and as remote otherwise; archived entries of
// both kinds share one bucket. Sizes come from the manifest entries.
type StorageStats struct {
	DatasetsCount           int   `json:"datasets_count"`
	DatasetsSizeBytes       int64 `json:"datasets_size_bytes"`
	ModelsCount             int   `json:"models_count"`
	ModelsSizeBytes         int64 `json:"models_size_bytes"`
	ArchiveCount            int   `json:"archive_count"`
	ArchiveSizeBytes        int64 `json:"archive_size_bytes"`
	RemoteDatasetsCount     int   `json:"remote_datasets_count"`
	RemoteDatasetsSizeBytes int64 `json:"remote_datasets_size_bytes"`
	RemoteModelsCount       int   `json:"remote_models_count"`
	RemoteModelsSizeBytes   int64 `json:"remote_models_size_bytes"`
	ProjectsCount           int   `json:"projects_count"`
	TotalSizeBytes          int64 `json:"total_size_bytes"`
	RemoteTotalSizeBytes    int64 `json:"remote_total_size_bytes"`
}

func (s *StorageStats) AsTableRenderer() TableRenderer {
	return &storageStatsTable{stats: s}
}

type storageStatsTable struct {
	stats *StorageStats
}

func (t *storageStatsTable) Headers() []string {
	return []string{"Section", "Items", "Bytes"}
}

func (t *storageStatsTable) Rows() [][]string {
	s := t.stats
	return [][]string{
		{"datasets (local)", strconv.Itoa(s.DatasetsCount), strconv.FormatInt(s.DatasetsSizeBytes, 10)},
		{"datasets (remote)", strconv.Itoa(s.RemoteDatasetsCount), strconv.FormatInt(s.RemoteDatasetsSizeBytes, 10)},
		{"models (local)", strconv.Itoa(s.ModelsCount), strconv.FormatInt(s.ModelsSizeBytes, 10)},
		{"models (remote)", strconv.Itoa(s.RemoteModelsCount), strconv.FormatInt(s.RemoteModelsSizeBytes, 10)},
		{"archive", strconv.Itoa(s.ArchiveCount), strconv.FormatInt(s.ArchiveSizeBytes, 10)},
		{"projects", strconv.Itoa(s.ProjectsCount), ""},
		{"total", "", strconv.FormatInt(s.TotalSizeBytes, 10)},
	}
}

func (t *storageStatsTable) EmptyMessage() string {
	return "Storage is empty"
}
