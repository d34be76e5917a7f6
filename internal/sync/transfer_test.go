package sync

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/content"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/manifest"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	seedDataset(t, store, "grasp-cube", map[string]string{
		"meta/info.json":                        `{"fps": 30}`,
		"data/chunk-000/episode_000001.parquet": "episode one",
		"data/chunk-000/episode_000002.parquet": "episode two",
	})

	if err := engine.Upload(context.Background(), types.KindDataset, "grasp-cube"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	uploaded, _ := store.Entry(types.KindDataset, "grasp-cube")
	if uploaded.Hash == "" {
		t.Fatal("entry hash empty after upload")
	}

	// Second machine: same remote, fresh storage root.
	other, otherStore := engineSharing(t, objects)
	if err := other.Download(context.Background(), types.KindDataset, "grasp-cube", nil); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	entry, ok := otherStore.Entry(types.KindDataset, "grasp-cube")
	if !ok {
		t.Fatal("download did not register the item")
	}
	hash, err := content.HashTree(otherStore.AbsPath(entry.Path))
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}
	if hash != uploaded.Hash {
		t.Errorf("round-trip hash = %s, want %s", hash, uploaded.Hash)
	}
	if entry.Hash != uploaded.Hash {
		t.Errorf("registered hash = %s, want %s", entry.Hash, uploaded.Hash)
	}
}

func TestUploadEventOrdering(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	seedDataset(t, store, "events", map[string]string{
		"a.parquet": "aa",
		"b.parquet": "bb",
	})

	var events []types.ProgressEvent
	ok, errMsg := engine.UploadWithProgress(context.Background(), types.KindDataset, "events", func(ev types.ProgressEvent) {
		events = append(events, ev)
	})
	if !ok {
		t.Fatalf("UploadWithProgress() failed: %s", errMsg)
	}

	if len(events) < 2 {
		t.Fatalf("too few events: %v", eventTypes(events))
	}
	if events[0].Type != types.EventStart {
		t.Errorf("first event = %s, want start", events[0].Type)
	}
	if events[len(events)-1].Type != types.EventComplete {
		t.Errorf("last event = %s, want complete", events[len(events)-1].Type)
	}

	// 2 data files plus the sidecar.
	if events[0].TotalFiles != 3 {
		t.Errorf("total files = %d, want 3", events[0].TotalFiles)
	}

	var uploading, uploaded, starts, completes int
	for _, ev := range events {
		switch ev.Type {
		case types.EventStart:
			starts++
		case types.EventUploading:
			uploading++
		case types.EventUploaded:
			uploaded++
		case types.EventComplete:
			completes++
		case types.EventError:
			t.Fatalf("unexpected error event: %s", ev.Error)
		}
	}
	if starts != 1 || completes != 1 {
		t.Errorf("start/complete counts = %d/%d, want 1/1", starts, completes)
	}
	if uploading != 3 || uploaded != 3 {
		t.Errorf("uploading/uploaded counts = %d/%d, want 3/3", uploading, uploaded)
	}
}

func TestDownloadNonexistentEmitsNoEvents(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	var events []types.ProgressEvent
	ok, errMsg := engine.DownloadWithProgress(context.Background(), types.KindDataset, "ghost", nil, func(ev types.ProgressEvent) {
		events = append(events, ev)
	})
	if ok {
		t.Fatal("download of nonexistent item succeeded")
	}
	if errMsg == "" {
		t.Error("missing error message")
	}
	if len(events) != 0 {
		t.Errorf("events emitted before failure: %v", eventTypes(events))
	}
}

func TestDownloadEpisodeSelector(t *testing.T) {
	engine, store, objects := newTestEngine(t)

	// Remote tree with episodes 1-5 in both padding conventions, a
	// meta folder, and videos.
	for _, key := range []string{
		"v2/datasets/lab/meta/info.json",
		"v2/datasets/lab/meta/episodes.jsonl",
		"v2/datasets/lab/data/episode_001.parquet",
		"v2/datasets/lab/data/episode_002.parquet",
		"v2/datasets/lab/data/episode_003.parquet",
		"v2/datasets/lab/data/chunk-000/episode_000003.parquet",
		"v2/datasets/lab/data/chunk-000/episode_000004.parquet",
		"v2/datasets/lab/data/chunk-000/episode_000005.parquet",
		"v2/datasets/lab/videos/episode_000003.mp4",
	} {
		objects.Seed(key, []byte("x"))
	}

	sel := &Selector{Episodes: []int{3}}
	if err := engine.Download(context.Background(), types.KindDataset, "lab", sel); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	entry, _ := store.Entry(types.KindDataset, "lab")
	dir := store.AbsPath(entry.Path)
	var got []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}
	sort.Strings(got)

	want := []string{
		".meta.json",
		"data/chunk-000/episode_000003.parquet",
		"data/episode_003.parquet",
		"meta/episodes.jsonl",
		"meta/info.json",
	}
	if len(got) != len(want) {
		t.Fatalf("downloaded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("downloaded %v, want %v", got, want)
		}
	}
}

func TestDownloadEmptyEpisodeSetIsMetadataOnly(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	objects.Seed("v2/datasets/bare/meta/info.json", []byte("x"))
	objects.Seed("v2/datasets/bare/data/episode_001.parquet", []byte("x"))
	objects.Seed("v2/datasets/bare/videos/episode_001.mp4", []byte("x"))

	if err := engine.Download(context.Background(), types.KindDataset, "bare", &Selector{}); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	entry, _ := store.Entry(types.KindDataset, "bare")
	dir := store.AbsPath(entry.Path)
	if _, err := os.Stat(filepath.Join(dir, "meta", "info.json")); err != nil {
		t.Errorf("metadata not downloaded: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "episode_001.parquet")); !os.IsNotExist(err) {
		t.Error("data downloaded despite empty episode set")
	}
	if _, err := os.Stat(filepath.Join(dir, "videos", "episode_001.mp4")); !os.IsNotExist(err) {
		t.Error("video downloaded despite empty episode set")
	}
}

func TestDownloadSelectorIncludeVideos(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	objects.Seed("v2/datasets/vids/meta/info.json", []byte("x"))
	objects.Seed("v2/datasets/vids/data/episode_003.parquet", []byte("x"))
	objects.Seed("v2/datasets/vids/videos/episode_003.mp4", []byte("x"))

	sel := &Selector{Episodes: []int{3}, IncludeVideos: true}
	if err := engine.Download(context.Background(), types.KindDataset, "vids", sel); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	entry, _ := store.Entry(types.KindDataset, "vids")
	if _, err := os.Stat(filepath.Join(store.AbsPath(entry.Path), "videos", "episode_003.mp4")); err != nil {
		t.Errorf("video not downloaded: %v", err)
	}
}

func TestUploadWritesRemoteSidecar(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	seedDataset(t, store, "sidecar-check", map[string]string{"data.parquet": "payload"})

	if err := engine.Upload(context.Background(), types.KindDataset, "sidecar-check"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	data, ok := objects.Object("v2/datasets/sidecar-check/.meta.json")
	if !ok {
		t.Fatal("remote sidecar missing after upload")
	}
	meta, err := manifest.ReadSidecarFile(data)
	if err != nil {
		t.Fatalf("ReadSidecarFile() error = %v", err)
	}
	entry, _ := store.Entry(types.KindDataset, "sidecar-check")
	if meta.Sync.Hash != entry.Hash {
		t.Errorf("remote sidecar hash = %s, want %s", meta.Sync.Hash, entry.Hash)
	}
	if meta.Sync.LastSyncedAt == "" {
		t.Error("remote sidecar missing last_synced_at")
	}
}

func TestDownloadRegistersRemoteOnlyItem(t *testing.T) {
	engine, store, objects := newTestEngine(t)

	meta := &types.Metadata{
		ID:     "act-policy",
		Kind:   types.KindModel,
		Source: types.SourceRemote,
		Model:  &types.ModelInfo{PolicyType: "act"},
	}
	sidecar, err := manifest.MarshalSidecar(meta)
	if err != nil {
		t.Fatalf("MarshalSidecar() error = %v", err)
	}
	objects.Seed("v2/models/act-policy/.meta.json", sidecar)
	objects.Seed("v2/models/act-policy/model.safetensors", []byte("weights"))

	if err := engine.Download(context.Background(), types.KindModel, "act-policy", nil); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := store.Get(types.KindModel, "act-policy")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Model == nil || got.Model.PolicyType != "act" {
		t.Errorf("policy type not carried over: %+v", got.Model)
	}
	entry, _ := store.Entry(types.KindModel, "act-policy")
	if entry.Hash == "" {
		t.Error("hash not refreshed after download")
	}
}

func TestProjectRoundTrip(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	if err := store.InitDirs(); err != nil {
		t.Fatalf("InitDirs() error = %v", err)
	}

	cfg := &manifest.ProjectConfig{
		Name:      "assembly-line",
		RobotType: "so101",
		Datasets:  []string{"grasp-cube"},
	}
	if err := store.SaveProjectConfig("assembly-line", cfg); err != nil {
		t.Fatalf("SaveProjectConfig() error = %v", err)
	}

	if err := engine.UploadProject(context.Background(), "assembly-line"); err != nil {
		t.Fatalf("UploadProject() error = %v", err)
	}
	if _, ok := objects.Object("v2/projects/assembly-line.yaml"); !ok {
		t.Fatal("project config not uploaded")
	}

	other, otherStore := engineSharing(t, objects)
	if err := other.DownloadProject(context.Background(), "assembly-line"); err != nil {
		t.Fatalf("DownloadProject() error = %v", err)
	}
	got, err := otherStore.LoadProjectConfig("assembly-line")
	if err != nil {
		t.Fatalf("LoadProjectConfig() error = %v", err)
	}
	if got.Name != "assembly-line" || got.RobotType != "so101" {
		t.Errorf("config = %+v", got)
	}
}

func TestSyncProjects(t *testing.T) {
	engine, store, objects := newTestEngine(t)
	if err := store.InitDirs(); err != nil {
		t.Fatalf("InitDirs() error = %v", err)
	}

	objects.Seed("v2/projects/alpha.yaml", []byte("name: alpha\n"))
	objects.Seed("v2/projects/beta.yaml", []byte("name: beta\n"))

	// A local copy of alpha already exists; only beta should come down.
	if err := store.SaveProjectConfig("alpha", &manifest.ProjectConfig{Name: "alpha"}); err != nil {
		t.Fatalf("SaveProjectConfig() error = %v", err)
	}

	downloaded, err := engine.SyncProjects(context.Background())
	if err != nil {
		t.Fatalf("SyncProjects() error = %v", err)
	}
	if len(downloaded) != 1 || downloaded[0] != "beta" {
		t.Errorf("downloaded = %v, want [beta]", downloaded)
	}
}
