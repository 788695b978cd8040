package filesystem

import (
	"context"
	"drawboard-server/core"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const fileExt = ".json"

type drawingStore struct {
	mu       sync.RWMutex
	basePath string
}

// NewDrawingStore stores one JSON file per drawing under basePath.
func NewDrawingStore(basePath string) (*drawingStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &drawingStore{basePath: basePath}, nil
}

func (s *drawingStore) filePath(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || id == "." || id == ".." {
		return "", fmt.Errorf("invalid drawing id %q", id)
	}
	return filepath.Join(s.basePath, id+fileExt), nil
}

func (s *drawingStore) List(ctx context.Context) ([]*core.Drawing, error) {
	log := logrus.WithField("path", s.basePath)

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing directory: %w", err)
	}

	drawings := make([]*core.Drawing, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read drawing file %s: %w", entry.Name(), err)
		}

		var drawing core.Drawing
		if err := json.Unmarshal(data, &drawing); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal drawing file %s, skipping", entry.Name())
			continue
		}
		drawings = append(drawings, &drawing)
	}

	sort.Slice(drawings, func(i, j int) bool {
		return core.Newer(drawings[i], drawings[j])
	})

	log.WithField("count", len(drawings)).Debug("Drawings listed")
	return drawings, nil
}

func (s *drawingStore) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	id := core.NewID()
	filePath, err := s.filePath(id)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{
		"drawing_id": id,
		"file_path":  filePath,
	})

	stored := *drawing
	stored.ID = id
	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal drawing: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file first so List never sees a partial drawing.
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write drawing file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to commit drawing file: %w", err)
	}

	log.Info("Drawing created successfully")
	return id, nil
}

func (s *drawingStore) Delete(ctx context.Context, id string) error {
	filePath, err := s.filePath(id)
	if err != nil {
		return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
	}
	log := logrus.WithFields(logrus.Fields{"drawing_id": id, "file_path": filePath})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("failed to delete drawing file: %w", err)
	}

	log.Info("Drawing deleted successfully")
	return nil
}

func (s *drawingStore) Close() error {
	return nil
}
