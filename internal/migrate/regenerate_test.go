package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

func TestRegenerateManifest(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	if err := store.InitDirs(); err != nil {
		t.Fatalf("InitDirs() error = %v", err)
	}

	// Remote ground truth: one dataset, one model.
	objects.Seed("v2/datasets/cloud-ds/data.parquet", []byte("data"))
	objects.Seed("v2/models/cloud-model/model.safetensors", []byte("weights"))

	// Local ground truth: a dataset directory with real content, and
	// an empty placeholder that must not be registered.
	localDir := filepath.Join(store.BasePath(), "datasets", "local", "bench-ds")
	if err := os.MkdirAll(localDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(localDir, "data.parquet"), []byte("rows"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(store.BasePath(), "datasets", "local", "empty-ds"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	// A stale entry that no ground truth backs must disappear.
	stale := &types.Metadata{ID: "stale", Kind: types.KindDataset}
	if _, err := store.Register(stale, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var events []types.ProgressEvent
	stats, err := engine.RegenerateManifest(context.Background(), func(ev types.ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("RegenerateManifest() error = %v", err)
	}

	if stats["datasets_remote"] != 1 || stats["models_remote"] != 1 {
		t.Errorf("remote stats = %v", stats)
	}
	if stats["datasets_local"] != 1 {
		t.Errorf("local stats = %v", stats)
	}

	if _, ok := store.Entry(types.KindDataset, "stale"); ok {
		t.Error("stale entry survived regeneration")
	}
	if _, ok := store.Entry(types.KindDataset, "empty-ds"); ok {
		t.Error("empty placeholder directory registered")
	}

	entry, ok := store.Entry(types.KindDataset, "bench-ds")
	if !ok {
		t.Fatal("local dataset not registered")
	}
	if entry.Source != types.SourceLocal {
		t.Errorf("source = %s, want local", entry.Source)
	}
	if entry.Hash == "" {
		t.Error("local dataset not hashed")
	}

	if _, ok := store.Entry(types.KindModel, "cloud-model"); !ok {
		t.Error("remote model not registered")
	}

	var scanning, registered int
	for _, ev := range events {
		switch ev.Type {
		case types.EventScanning:
			scanning++
		case types.EventRegistered:
			registered++
		}
	}
	if scanning != 4 {
		t.Errorf("scanning events = %d, want 4", scanning)
	}
	if registered != 3 {
		t.Errorf("registered events = %d, want 3", registered)
	}
	if events[len(events)-1].Type != types.EventComplete {
		t.Errorf("last event = %s, want complete", events[len(events)-1].Type)
	}
}

func TestRegenerateSkipsRemoteDuplicates(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	if err := store.InitDirs(); err != nil {
		t.Fatalf("InitDirs() error = %v", err)
	}

	objects.Seed("v2/datasets/shared/data.parquet", []byte("remote"))
	dir := filepath.Join(store.BasePath(), "datasets", "r2", "shared")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.parquet"), []byte("remote"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	stats, err := engine.RegenerateManifest(context.Background(), nil)
	if err != nil {
		t.Fatalf("RegenerateManifest() error = %v", err)
	}
	if stats["datasets_remote"] != 1 || stats["datasets_local"] != 0 {
		t.Errorf("stats = %v, want one remote registration only", stats)
	}
}

func TestRegeneratePreservesProjects(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	if err := store.InitDirs(); err != nil {
		t.Fatalf("InitDirs() error = %v", err)
	}

	project := &types.Metadata{ID: "cell-3", Kind: types.KindProject}
	if _, err := store.Register(project, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := engine.RegenerateManifest(context.Background(), nil); err != nil {
		t.Fatalf("RegenerateManifest() error = %v", err)
	}
	if _, ok := store.ProjectEntry("cell-3"); !ok {
		t.Error("regeneration dropped a project entry")
	}
}
