package utils

// Storage layout directory names, relative to the data root.
const (
	DatasetsDirName = "datasets"
	ModelsDirName   = "models"
	ProjectsDirName = "projects"
	ArchiveDirName  = "archive"
	CacheDirName    = "cache"
)

// Well-known file names.
const (
	ManifestFileName       = "manifest.json"
	RemoteManifestFileName = ".manifest.json"
	SidecarFileName        = ".meta.json"
	JournalFileName        = "journal.db"
	ConfigFileName         = "config.json"
)

// Default data directory under $HOME when no override is set.
const DefaultDataDirName = ".physical-ai"

// Environment variables honored for the data root, in precedence order.
var DataDirEnvVars = []string{"PHI_DATA_DIR", "PHYSICAL_AI_DATA_DIR"}

// Transfer thresholds (binary units)
const (
	MultipartCopyThreshold = 5 * 1024 * 1024 * 1024 // 5 GiB, S3 CopyObject limit
	CopyPartSize           = 256 * 1024 * 1024      // 256 MiB
)

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Schema version
const SchemaVersion = "1.0"
