package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// ProjectConfig is the YAML document stored per project. It records
// the robot setup and references to the datasets and models the
// project uses.
type ProjectConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	RobotType   string   `yaml:"robot_type,omitempty"`
	Datasets    []string `yaml:"datasets,omitempty"`
	Models      []string `yaml:"models,omitempty"`
	CreatedAt   string   `yaml:"created_at,omitempty"`
	UpdatedAt   string   `yaml:"updated_at,omitempty"`
}

// ProjectConfigPath returns the YAML location for a project ID,
// following the manifest entry when the project is archived.
func (s *Store) ProjectConfigPath(id string) string {
	if entry, ok := s.Entry(types.KindProject, id); ok {
		return s.AbsPath(entry.Path)
	}
	return filepath.Join(s.basePath, utils.ProjectsDirName, id+".yaml")
}

// LoadProjectConfig reads and parses a project's YAML.
func (s *Store) LoadProjectConfig(id string) (*ProjectConfig, error) {
	data, err := os.ReadFile(s.ProjectConfigPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NotFoundError(types.KindProject, id)
		}
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to read project %s: %v", id, err)).Build())
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeCorrupt,
			fmt.Sprintf("corrupt project config %s: %v", id, err)).Build())
	}
	return &cfg, nil
}

// SaveProjectConfig writes a project's YAML and registers or updates
// its manifest entry, including hash and size.
func (s *Store) SaveProjectConfig(id string, cfg *ProjectConfig) error {
	if cfg.Name == "" {
		cfg.Name = id
	}
	if cfg.CreatedAt == "" {
		cfg.CreatedAt = nowStamp()
	}
	cfg.UpdatedAt = nowStamp()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeInternalError,
			fmt.Sprintf("failed to marshal project %s: %v", id, err)).Build())
	}

	path := s.ProjectConfigPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to create projects dir: %v", err)).Build())
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to write project %s: %v", id, err)).Build())
	}

	hash, size, err := hashFilePath(path)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(
			utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to hash project %s: %v", id, err)).Build())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entryLocked(types.KindProject, id)
	if !ok {
		e := types.Entry{
			Path:      entryPath(types.KindProject, types.SourceLocal, id),
			Source:    types.SourceLocal,
			Hash:      hash,
			SizeBytes: size,
			Status:    types.StatusActive,
		}
		s.setEntryLocked(types.KindProject, id, e)
	} else {
		entry.Hash = hash
		entry.SizeBytes = size
		s.setEntryLocked(types.KindProject, id, *entry)
	}

	pe := s.manifest.Projects[id]
	pe.Datasets = append([]string(nil), cfg.Datasets...)
	pe.Models = append([]string(nil), cfg.Models...)

	return s.saveLocked()
}
