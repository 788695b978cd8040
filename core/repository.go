package core

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	MsgImageDataRequired = "Image data is required"
	MsgInvalidID         = "Invalid ID format"
	MsgDrawingNotFound   = "Drawing not found"
	MsgFetchFailed       = "Failed to fetch drawings"
	MsgSaveFailed        = "Failed to save drawing"
	MsgDeleteFailed      = "Failed to delete drawing"
)

// Repository validates requests and maps store results onto the error
// taxonomy. It is safe for concurrent use as long as the store is.
type Repository struct {
	store  DrawingStore
	events Events
	now    func() time.Time
}

type RepositoryOption func(*Repository)

// WithEvents registers a listener for committed inserts and deletes.
func WithEvents(events Events) RepositoryOption {
	return func(r *Repository) {
		r.events = events
	}
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

func NewRepository(store DrawingStore, opts ...RepositoryOption) *Repository {
	r := &Repository{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns every drawing, newest first. The result is never nil.
func (r *Repository) List(ctx context.Context) ([]*Drawing, error) {
	drawings, err := r.store.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list drawings")
		return nil, internalError(MsgFetchFailed, err)
	}
	if drawings == nil {
		drawings = []*Drawing{}
	}
	return drawings, nil
}

// Insert stores imageData as a new drawing and returns its id.
func (r *Repository) Insert(ctx context.Context, imageData string) (string, error) {
	if imageData == "" {
		return "", validationError(MsgImageDataRequired)
	}

	drawing := &Drawing{
		ImageData: imageData,
		CreatedAt: FormatTimestamp(r.now()),
	}
	id, err := r.store.Create(ctx, drawing)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":       err,
			"data_length": len(imageData),
		}).Error("Failed to save drawing")
		return "", internalError(MsgSaveFailed, err)
	}
	drawing.ID = id

	if r.events != nil {
		r.events.DrawingCreated(drawing)
	}
	return id, nil
}

// Delete removes the drawing with the given id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	id, ok := CanonicalID(id)
	if !ok {
		return validationError(MsgInvalidID)
	}

	log := logrus.WithField("drawing_id", id)
	if err := r.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("Drawing with specified ID not found")
			return notFoundError(MsgDrawingNotFound, err)
		}
		log.WithError(err).Error("Failed to delete drawing")
		return internalError(MsgDeleteFailed, err)
	}

	if r.events != nil {
		r.events.DrawingDeleted(id)
	}
	return nil
}
