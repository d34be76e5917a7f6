package remote

import (
	"testing"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

func TestLayout_VersionedKeys(t *testing.T) {
	l := NewLayout("v2")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"item prefix", l.ItemPrefix(types.KindDataset, "pick-place-01"), "v2/datasets/pick-place-01/"},
		{"object key", l.ObjectKey(types.KindModel, "act-v3", "checkpoints/last.safetensors"), "v2/models/act-v3/checkpoints/last.safetensors"},
		{"sidecar key", l.SidecarKey(types.KindDataset, "pick-place-01"), "v2/datasets/pick-place-01/.meta.json"},
		{"project key", l.ProjectKey("sorting-demo"), "v2/projects/sorting-demo.yaml"},
		{"projects prefix", l.ProjectsPrefix(), "v2/projects/"},
		{"manifest key", l.ManifestKey(), "v2/.manifest.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLayout_LegacyKeys(t *testing.T) {
	l := NewLayout("")

	if got := l.ItemPrefix(types.KindDataset, "old-ds"); got != "datasets/old-ds/" {
		t.Errorf("legacy item prefix = %q", got)
	}
	if got := l.ManifestKey(); got != ".manifest.json" {
		t.Errorf("legacy manifest key = %q", got)
	}
}

func TestLayout_PrefixNormalization(t *testing.T) {
	l := NewLayout("/v2/")
	if got := l.ItemPrefix(types.KindModel, "m"); got != "v2/models/m/" {
		t.Errorf("normalized prefix produced %q", got)
	}
}

func TestLayout_RelPath(t *testing.T) {
	l := NewLayout("v2")

	rel := l.RelPath(types.KindDataset, "ds1", "v2/datasets/ds1/data/episode_000.parquet")
	if rel != "data/episode_000.parquet" {
		t.Errorf("RelPath = %q", rel)
	}

	if rel := l.RelPath(types.KindDataset, "ds1", "v2/models/other/file"); rel != "" {
		t.Errorf("Expected empty rel path for foreign key, got %q", rel)
	}
}
