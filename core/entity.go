package core

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// TimestampLayout is the layout of Drawing.CreatedAt. It is fixed width, so
// comparing two timestamps as strings orders them chronologically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type (
	// Drawing is a saved canvas raster.
	Drawing struct {
		ID        string `json:"id" bson:"_id"`
		ImageData string `json:"imageData" bson:"imageData"`
		CreatedAt string `json:"createdAt" bson:"createdAt"`
	}

	// DrawingStore persists drawings. Create assigns the identifier; Delete
	// returns an error wrapping ErrNotFound when nothing was removed.
	DrawingStore interface {
		List(ctx context.Context) ([]*Drawing, error)
		Create(ctx context.Context, drawing *Drawing) (string, error)
		Delete(ctx context.Context, id string) error
		Close() error
	}

	// Events receives notifications about committed changes.
	Events interface {
		DrawingCreated(drawing *Drawing)
		DrawingDeleted(id string)
	}
)

// NewID returns a fresh drawing identifier.
func NewID() string {
	return ulid.Make().String()
}

// ValidID reports whether id is a well-formed drawing identifier.
func ValidID(id string) bool {
	_, ok := CanonicalID(id)
	return ok
}

// CanonicalID returns id in the form NewID produces. Identifiers are case
// insensitive but stores match them byte for byte.
func CanonicalID(id string) (string, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Newer reports whether a sorts before b in list order: newest first, ties
// broken by the larger id.
func Newer(a, b *Drawing) bool {
	if a.CreatedAt == b.CreatedAt {
		return a.ID > b.ID
	}
	return a.CreatedAt > b.CreatedAt
}
