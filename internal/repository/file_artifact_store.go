package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
)

const artifactFile = "ridge.json"

// FileArtifactStore persists the single current model artifact as JSON on
// disk. Save writes to a temp file and renames it into place, so readers see
// either the old artifact or the new one, never a torn write.
type FileArtifactStore struct {
	dir string
}

func NewFileArtifactStore(dir string) domrepo.ArtifactStore {
	return &FileArtifactStore{dir: dir}
}

func (s *FileArtifactStore) path() string {
	return filepath.Join(s.dir, artifactFile)
}

func (s *FileArtifactStore) Save(art *models.ModelArtifact) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("artifact dir: %w", err)
	}

	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, artifactFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *FileArtifactStore) Load() (*models.ModelArtifact, error) {
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrArtifactMissing
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var art models.ModelArtifact
	if err := json.Unmarshal(b, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if len(art.FeatureNames) == 0 || len(art.Weights) != len(art.FeatureNames) {
		return nil, fmt.Errorf("artifact is inconsistent: %d features, %d weights", len(art.FeatureNames), len(art.Weights))
	}
	return &art, nil
}

func (s *FileArtifactStore) Remove() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}
