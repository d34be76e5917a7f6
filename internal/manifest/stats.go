package manifest

import (
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/content"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

// Stats aggregates every manifest entry into storage statistics. An
// active entry is "local" when its directory holds files beyond the
// sidecar and "remote" otherwise; archived datasets and models share
// one bucket. Sizes are the manifest-recorded content sizes, so a
// remote-only entry still contributes its bytes.
func (s *Store) Stats() *types.StorageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &types.StorageStats{
		ProjectsCount: len(s.manifest.Projects),
	}

	for _, entry := range s.manifest.Datasets {
		switch {
		case entry.Status != types.StatusActive:
			stats.ArchiveCount++
			stats.ArchiveSizeBytes += entry.SizeBytes
		case content.HasContent(s.AbsPath(entry.Path)):
			stats.DatasetsCount++
			stats.DatasetsSizeBytes += entry.SizeBytes
		default:
			stats.RemoteDatasetsCount++
			stats.RemoteDatasetsSizeBytes += entry.SizeBytes
		}
	}

	for _, entry := range s.manifest.Models {
		switch {
		case entry.Status != types.StatusActive:
			stats.ArchiveCount++
			stats.ArchiveSizeBytes += entry.SizeBytes
		case content.HasContent(s.AbsPath(entry.Path)):
			stats.ModelsCount++
			stats.ModelsSizeBytes += entry.SizeBytes
		default:
			stats.RemoteModelsCount++
			stats.RemoteModelsSizeBytes += entry.SizeBytes
		}
	}

	stats.TotalSizeBytes = stats.DatasetsSizeBytes + stats.ModelsSizeBytes + stats.ArchiveSizeBytes
	stats.RemoteTotalSizeBytes = stats.RemoteDatasetsSizeBytes + stats.RemoteModelsSizeBytes
	return stats
}
