package types

// Progress event types emitted during long-running transfers. Every
// transfer emits exactly one "start" first and exactly one "complete"
// or "error" last.
const (
	EventStart       = "start"
	EventUploading   = "uploading"
	EventDownloading = "downloading"
	EventProgress    = "progress"
	EventUploaded    = "uploaded"
	EventDownloaded  = "downloaded"
	EventCopying     = "copying"
	EventCopied      = "copied"
	EventScanning    = "scanning"
	EventRegistered  = "registered"
	EventComplete    = "complete"
	EventError       = "error"
)

// ProgressEvent describes one step of a transfer or migration. Fields
// other than Type are populated per event type.
type ProgressEvent struct {
	Type             string         `json:"type"`
	ItemID           string         `json:"item_id,omitempty"`
	Kind             Kind           `json:"kind,omitempty"`
	Target           string         `json:"target,omitempty"`
	TotalFiles       int            `json:"total_files,omitempty"`
	TotalBytes       int64          `json:"total_bytes,omitempty"`
	CurrentFile      string         `json:"current_file,omitempty"`
	FileBytes        int64          `json:"file_bytes,omitempty"`
	FilesDone        int            `json:"files_done,omitempty"`
	BytesTransferred int64          `json:"bytes_transferred,omitempty"`
	CopiedObjects    int            `json:"copied_objects,omitempty"`
	Stats            map[string]int `json:"stats,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// ProgressFunc receives progress events. Implementations must not
// block for long; they run inline with the transfer.
type ProgressFunc func(ProgressEvent)
