package memory

import (
	"context"
	"drawboard-server/core"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

type drawingStore struct {
	mu       sync.RWMutex
	drawings map[string]core.Drawing
}

func NewDrawingStore() core.DrawingStore {
	return &drawingStore{
		drawings: make(map[string]core.Drawing),
	}
}

func (s *drawingStore) List(ctx context.Context) ([]*core.Drawing, error) {
	s.mu.RLock()
	drawings := make([]*core.Drawing, 0, len(s.drawings))
	for _, d := range s.drawings {
		drawing := d
		drawings = append(drawings, &drawing)
	}
	s.mu.RUnlock()

	sort.Slice(drawings, func(i, j int) bool {
		return core.Newer(drawings[i], drawings[j])
	})

	logrus.WithField("count", len(drawings)).Debug("Drawings listed")
	return drawings, nil
}

func (s *drawingStore) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	id := core.NewID()
	stored := *drawing
	stored.ID = id

	s.mu.Lock()
	s.drawings[id] = stored
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"drawing_id":  id,
		"data_length": len(drawing.ImageData),
	}).Info("Drawing created successfully")

	return id, nil
}

func (s *drawingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drawings[id]; !ok {
		return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
	}
	delete(s.drawings, id)

	logrus.WithField("drawing_id", id).Info("Drawing deleted successfully")
	return nil
}

func (s *drawingStore) Close() error {
	return nil
}
