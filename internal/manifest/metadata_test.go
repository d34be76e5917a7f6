package manifest

import (
	"testing"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

func TestGuessPolicyType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"act-pick-place-v2", "act"},
		{"ACT_SORTER", "act"},
		{"pi0-base", "pi0"},
		// pi05 collapses into the pi0 family
		{"pi05-finetune", "pi0"},
		{"diffusion-policy-3", "diffusion"},
		// "act" beats later matches when several apply
		{"act-diffusion-hybrid", "act"},
		{"mystery-model", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessPolicyType(tt.name); got != tt.want {
				t.Errorf("GuessPolicyType(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()

	meta := &types.Metadata{
		ID:     "model-x",
		Kind:   types.KindModel,
		Name:   "Model X",
		Source: types.SourceRemote,
		Status: types.StatusActive,
		Model: &types.ModelInfo{
			ModelType:          "checkpoint",
			PolicyType:         "act",
			TrainedFromDataset: "pick-place",
			TrainingSteps:      80000,
		},
		Sync: types.SyncInfo{
			Hash:      "deadbeef",
			SizeBytes: 1024,
		},
	}

	if err := writeSidecar(dir, meta); err != nil {
		t.Fatalf("writeSidecar() error = %v", err)
	}

	got, err := readSidecar(dir)
	if err != nil {
		t.Fatalf("readSidecar() error = %v", err)
	}

	if got.ID != meta.ID || got.Kind != meta.Kind {
		t.Errorf("Identity fields lost: %+v", got)
	}
	if got.Model == nil || got.Model.TrainingSteps != 80000 {
		t.Errorf("Model fields lost: %+v", got.Model)
	}
	if got.Dataset != nil {
		t.Error("Dataset block set on a model sidecar")
	}
	if got.Sync.Hash != "deadbeef" || got.Sync.SizeBytes != 1024 {
		t.Errorf("Sync block lost: %+v", got.Sync)
	}
}

func TestMetadataFromEntry(t *testing.T) {
	entry := types.Entry{
		Path:      "models/r2/act-m1",
		Source:    types.SourceRemote,
		Type:      "checkpoint",
		Hash:      "cafe",
		SizeBytes: 99,
		Status:    types.StatusActive,
	}

	meta := metadataFromEntry(types.KindModel, "act-m1", entry)
	if meta.Model == nil {
		t.Fatal("Model block missing")
	}
	if meta.Model.ModelType != "checkpoint" {
		t.Errorf("Type not carried: %s", meta.Model.ModelType)
	}
	if meta.Model.PolicyType != "act" {
		t.Errorf("Policy type not guessed from ID: %s", meta.Model.PolicyType)
	}
	if meta.Sync.Hash != "cafe" || meta.Sync.SizeBytes != 99 {
		t.Errorf("Sync info not carried: %+v", meta.Sync)
	}
}
