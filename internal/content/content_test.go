package content

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestHashTree_Deterministic(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	for _, dir := range []string{dir1, dir2} {
		writeFile(t, dir, "data/episode_000.parquet", "episode zero")
		writeFile(t, dir, "data/episode_001.parquet", "episode one")
		writeFile(t, dir, "info.json", `{"fps": 30}`)
	}

	hash1, err := HashTree(dir1)
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}
	hash2, err := HashTree(dir2)
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("Identical trees hashed differently: %s vs %s", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("Expected 64-char sha256 hex digest, got %d chars", len(hash1))
	}
}

func TestHashTree_ContentSensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "original")

	before, err := HashTree(dir)
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}

	writeFile(t, dir, "a.txt", "modified")
	after, err := HashTree(dir)
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}

	if before == after {
		t.Error("Hash unchanged after file modification")
	}
}

func TestHashTree_PathSensitive(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	writeFile(t, dir1, "a.txt", "same content")
	writeFile(t, dir2, "b.txt", "same content")

	hash1, _ := HashTree(dir1)
	hash2, _ := HashTree(dir2)

	if hash1 == hash2 {
		t.Error("Trees with different file names hashed identically")
	}
}

func TestHashTree_IgnoresSidecar(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	writeFile(t, dir1, "data.bin", "payload")
	writeFile(t, dir2, "data.bin", "payload")
	writeFile(t, dir2, ".meta.json", `{"id": "x"}`)

	hash1, _ := HashTree(dir1)
	hash2, _ := HashTree(dir2)

	if hash1 != hash2 {
		t.Error("Sidecar file changed the tree hash")
	}
}

func TestHashTree_IgnoresSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	dir1 := t.TempDir()
	dir2 := t.TempDir()

	writeFile(t, dir1, "real.txt", "content")
	writeFile(t, dir2, "real.txt", "content")
	if err := os.Symlink(filepath.Join(dir2, "real.txt"), filepath.Join(dir2, "link.txt")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	hash1, _ := HashTree(dir1)
	hash2, _ := HashTree(dir2)

	if hash1 != hash2 {
		t.Error("Symlink changed the tree hash")
	}
}

func TestHashTree_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	hash, err := HashTree(dir)
	if err != nil {
		t.Fatalf("HashTree() error = %v", err)
	}
	if hash == "" {
		t.Error("Expected non-empty digest for empty tree")
	}

	// The empty-tree digest is still deterministic
	hash2, _ := HashTree(t.TempDir())
	if hash != hash2 {
		t.Error("Empty trees hashed differently")
	}
}

func TestTreeSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", "12345")
	writeFile(t, dir, "sub/b.bin", "1234567890")
	writeFile(t, dir, ".meta.json", `{"ignored": true}`)

	size, err := TreeSize(dir)
	if err != nil {
		t.Fatalf("TreeSize() error = %v", err)
	}
	if size != 15 {
		t.Errorf("Expected size 15, got %d", size)
	}
}

func TestHasContent(t *testing.T) {
	dir := t.TempDir()
	if HasContent(dir) {
		t.Error("Empty dir reported as having content")
	}

	writeFile(t, dir, ".meta.json", `{"id": "x"}`)
	if HasContent(dir) {
		t.Error("Sidecar-only dir reported as having content")
	}

	writeFile(t, dir, "data.bin", "payload")
	if !HasContent(dir) {
		t.Error("Dir with content reported as empty")
	}
}
