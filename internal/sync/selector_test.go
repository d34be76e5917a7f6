package sync

import "testing"

func TestSelectorMatches(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selector
		relPath string
		want    bool
	}{
		{"sidecar always", Selector{Episodes: []int{1}}, ".meta.json", true},
		{"meta folder always", Selector{Episodes: []int{1}}, "meta/info.json", true},
		{"matching 3-digit episode", Selector{Episodes: []int{3}}, "data/episode_003.parquet", true},
		{"matching 6-digit episode", Selector{Episodes: []int{3}}, "data/chunk-000/episode_000003.parquet", true},
		{"non-matching episode", Selector{Episodes: []int{3}}, "data/episode_004.parquet", false},
		{"padding is not a prefix match", Selector{Episodes: []int{0}}, "data/episode_000003.parquet", false},
		{"episode in any set position", Selector{Episodes: []int{2, 3}}, "data/episode_002.parquet", true},
		{"videos excluded by default", Selector{Episodes: []int{3}}, "videos/episode_003.mp4", false},
		{"videos included on request", Selector{Episodes: []int{3}, IncludeVideos: true}, "videos/episode_003.mp4", true},
		{"empty episode set keeps metadata", Selector{}, ".meta.json", true},
		{"empty episode set keeps meta folder", Selector{}, "meta/episodes.jsonl", true},
		{"empty episode set drops data", Selector{}, "data/episode_042.parquet", false},
		{"empty episode set drops videos", Selector{}, "videos/episode_042.mp4", false},
		{"empty episode set drops videos even when included", Selector{IncludeVideos: true}, "videos/episode_042.mp4", false},
		{"unrelated file needs episode match", Selector{Episodes: []int{3}}, "README.md", false},
		{"odd padding width ignored", Selector{Episodes: []int{3}}, "data/episode_0003.parquet", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Matches(tt.relPath); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.relPath, got, tt.want)
			}
		})
	}
}
