// Package shell is the page-level state: which view is showing and a counter
// that forces the gallery to reload after a save.
package shell

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type View string

const (
	ViewCanvas  View = "canvas"
	ViewGallery View = "gallery"
)

// Labels shown on the view toggle.
var Labels = map[View]string{
	ViewCanvas:  "그리기",
	ViewGallery: "갤러리",
}

type Shell struct {
	mu         sync.Mutex
	view       View
	refreshKey int
	onChange   func(View, int)
}

// New starts on the canvas view. onChange, if non-nil, runs after every view
// or refresh-key change.
func New(onChange func(view View, refreshKey int)) *Shell {
	return &Shell{view: ViewCanvas, onChange: onChange}
}

func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Shell) RefreshKey() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshKey
}

func (s *Shell) Show(v View) error {
	if v != ViewCanvas && v != ViewGallery {
		return fmt.Errorf("unknown view %q", v)
	}
	s.mu.Lock()
	s.view = v
	key := s.refreshKey
	s.mu.Unlock()

	s.changed(v, key)
	return nil
}

// SaveCompleted bumps the refresh key and switches to the gallery. It has the
// shape of canvas.WithSaveComplete's callback.
func (s *Shell) SaveCompleted(id string) {
	s.mu.Lock()
	s.refreshKey++
	s.view = ViewGallery
	key := s.refreshKey
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"id":         id,
		"refreshKey": key,
	}).Debug("Save completed, showing gallery")
	s.changed(ViewGallery, key)
}

func (s *Shell) changed(v View, key int) {
	if s.onChange != nil {
		s.onChange(v, key)
	}
}
