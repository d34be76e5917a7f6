package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// SidecarPath returns the sidecar location for an item directory.
func SidecarPath(dir string) string {
	return filepath.Join(dir, utils.SidecarFileName)
}

func readSidecar(dir string) (*types.Metadata, error) {
	data, err := os.ReadFile(SidecarPath(dir))
	if err != nil {
		return nil, err
	}
	var meta types.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeCorrupt,
			fmt.Sprintf("corrupt sidecar in %s: %v", dir, err)).Build())
	}
	return &meta, nil
}

func writeSidecar(dir string, meta *types.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInternalError,
			fmt.Sprintf("failed to marshal sidecar: %v", err)).Build())
	}
	if err := os.WriteFile(SidecarPath(dir), data, 0644); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to write sidecar in %s: %v", dir, err)).Build())
	}
	return nil
}

// ReadSidecarFile parses sidecar bytes fetched from the remote store.
func ReadSidecarFile(data []byte) (*types.Metadata, error) {
	var meta types.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeCorrupt,
			fmt.Sprintf("corrupt sidecar: %v", err)).Build())
	}
	return &meta, nil
}

// MarshalSidecar renders a sidecar the way writeSidecar stores it.
func MarshalSidecar(meta *types.Metadata) ([]byte, error) {
	return json.MarshalIndent(meta, "", "  ")
}

// metadataFromEntry synthesizes minimal metadata when no sidecar
// exists, so callers always get a usable record for manifest items.
func metadataFromEntry(kind types.Kind, id string, entry types.Entry) *types.Metadata {
	meta := &types.Metadata{
		ID:     id,
		Kind:   kind,
		Name:   id,
		Source: entry.Source,
		Status: entry.Status,
		Sync: types.SyncInfo{
			Hash:      entry.Hash,
			SizeBytes: entry.SizeBytes,
		},
	}
	switch kind {
	case types.KindDataset:
		meta.Dataset = &types.DatasetInfo{DatasetType: entry.Type}
	case types.KindModel:
		meta.Model = &types.ModelInfo{
			ModelType:  entry.Type,
			PolicyType: GuessPolicyType(id),
		}
	}
	return meta
}

// GuessPolicyType infers a model's policy family from its name. The
// checks are ordered; "act" wins over the others when several match.
func GuessPolicyType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "act"):
		return "act"
	case strings.Contains(lower, "pi0"):
		// Covers pi05 variants too; they share the pi0 family.
		return "pi0"
	case strings.Contains(lower, "diffusion"):
		return "diffusion"
	}
	return "unknown"
}

// hashFilePath hashes a single file, used for project configs.
func hashFilePath(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), nil
}
