package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/logging"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/remote"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/testing/mocks"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

func newTestEngine(t *testing.T) (*Engine, *manifest.Store, *mocks.MemStore) {
	t.Helper()
	store, err := manifest.Open(t.TempDir(), logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("manifest.Open() error = %v", err)
	}
	objects := mocks.NewMemStore()
	engine := New(store, objects, remote.NewLayout("v2"), logging.NewNoOpLogger())
	return engine, store, objects
}

// engineSharing builds a second engine over its own storage root but
// the same remote store, simulating a second machine.
func engineSharing(t *testing.T, objects *mocks.MemStore) (*Engine, *manifest.Store) {
	t.Helper()
	store, err := manifest.Open(t.TempDir(), logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("manifest.Open() error = %v", err)
	}
	return New(store, objects, remote.NewLayout("v2"), logging.NewNoOpLogger()), store
}

// seedDataset registers a local dataset and writes its files.
func seedDataset(t *testing.T, store *manifest.Store, id string, files map[string]string) types.Entry {
	t.Helper()
	meta := &types.Metadata{
		ID:      id,
		Kind:    types.KindDataset,
		Dataset: &types.DatasetInfo{DatasetType: "lerobot"},
	}
	entry, err := store.Register(meta, true)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", id, err)
	}
	dir := store.AbsPath(entry.Path)
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if _, _, err := store.RefreshHash(types.KindDataset, id); err != nil {
		t.Fatalf("RefreshHash(%s) error = %v", id, err)
	}
	entry, _ = store.Entry(types.KindDataset, id)
	return entry
}

func eventTypes(events []types.ProgressEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
