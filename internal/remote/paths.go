package remote

import (
	"strings"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// Layout maps artifacts to remote object keys. Prefix is the storage
// layout version segment ("v2"); an empty prefix addresses the legacy
// flat layout that predates versioning.
type Layout struct {
	Prefix string
}

// NewLayout normalizes prefix (trailing slashes stripped).
func NewLayout(prefix string) Layout {
	return Layout{Prefix: strings.Trim(prefix, "/")}
}

func (l Layout) join(parts ...string) string {
	if l.Prefix != "" {
		parts = append([]string{l.Prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

// KindPrefix is the key prefix covering every item of one kind,
// including the trailing slash.
func (l Layout) KindPrefix(kind types.Kind) string {
	return l.join(kind.Plural()) + "/"
}

// ItemPrefix is the key prefix covering every object of one item,
// including the trailing slash.
func (l Layout) ItemPrefix(kind types.Kind, id string) string {
	return l.join(kind.Plural(), id) + "/"
}

// ObjectKey maps a slash-relative file path inside an item to its key.
func (l Layout) ObjectKey(kind types.Kind, id, relPath string) string {
	return l.ItemPrefix(kind, id) + relPath
}

// SidecarKey is the key of an item's metadata sidecar.
func (l Layout) SidecarKey(kind types.Kind, id string) string {
	return l.ObjectKey(kind, id, utils.SidecarFileName)
}

// ProjectKey is the key of a project's YAML config.
func (l Layout) ProjectKey(id string) string {
	return l.join(utils.ProjectsDirName, id+".yaml")
}

// ProjectsPrefix covers all project configs.
func (l Layout) ProjectsPrefix() string {
	return l.join(utils.ProjectsDirName) + "/"
}

// ManifestKey is the key of the replicated manifest document.
func (l Layout) ManifestKey() string {
	return l.join(utils.RemoteManifestFileName)
}

// RelPath recovers the item-relative file path from a full object key,
// or "" when the key is not under the item's prefix.
func (l Layout) RelPath(kind types.Kind, id, key string) string {
	prefix := l.ItemPrefix(kind, id)
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	return key[len(prefix):]
}
