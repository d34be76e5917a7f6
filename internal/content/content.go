// Package content computes deterministic hashes and sizes for artifact
// directories. The hash covers file paths and contents only; sidecar
// metadata files and symlinks are excluded so that a directory hashes
// identically wherever it is checked out.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// fileDigest is one (relative path, content hash) pair in the tree.
type fileDigest struct {
	relPath string
	hash    string
}

// HashTree returns the sha256 hex digest of the directory at root. The
// digest is computed over the sorted list of slash-relative file paths
// and their individual sha256 digests, so it is stable across
// filesystems and walk orders.
func HashTree(root string) (string, error) {
	digests, err := collectDigests(root)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, d := range digests {
		fmt.Fprintf(h, "%s:%s\n", d.relPath, d.hash)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TreeSize returns the total byte size of the files covered by
// HashTree: all regular files under root except sidecar metadata and
// symlinks.
func TreeSize(root string) (int64, error) {
	var total int64
	err := walkTree(root, func(relPath, fullPath string, info fs.FileInfo) error {
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// HasContent reports whether root contains any file other than the
// sidecar. An item directory holding only its .meta.json counts as
// not locally present.
func HasContent(root string) bool {
	found := false
	err := walkTree(root, func(relPath, fullPath string, info fs.FileInfo) error {
		found = true
		return fs.SkipAll
	})
	return err == nil && found
}

func collectDigests(root string) ([]fileDigest, error) {
	var digests []fileDigest
	err := walkTree(root, func(relPath, fullPath string, info fs.FileInfo) error {
		hash, err := hashFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", relPath, err)
		}
		digests = append(digests, fileDigest{relPath: relPath, hash: hash})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(digests, func(i, j int) bool {
		return digests[i].relPath < digests[j].relPath
	})
	return digests, nil
}

// walkTree visits every regular file under root, skipping symlinks and
// sidecar files, and hands the visitor a slash-separated relative path.
func walkTree(root string, visit func(relPath, fullPath string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.Name() == utils.SidecarFileName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = path.Clean(filepath.ToSlash(rel))

		return visit(rel, p, info)
	})
}

func hashFile(path string) (hash string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
