package gallery

import (
	"context"
	"drawboard-server/core"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EmptyTitle = "아직 저장된 그림이 없습니다."
	EmptyHint  = "그리기 탭에서 그림을 그리고 저장해보세요!"
)

var ErrDeletePending = errors.New("gallery: delete already in progress")

// Source is where the gallery reads drawings from and sends deletes to. Both
// client.Client and core.Repository satisfy it.
type Source interface {
	List(ctx context.Context) ([]*core.Drawing, error)
	Delete(ctx context.Context, id string) error
}

type Option func(*Gallery)

// WithLocation sets the zone timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(g *Gallery) { g.loc = loc }
}

// Gallery holds the most recently loaded drawings. It is safe for concurrent
// use; deletes of different items may run in parallel.
type Gallery struct {
	source Source
	loc    *time.Location

	mu      sync.RWMutex
	items   []*core.Drawing
	pending map[string]bool
}

func New(source Source, opts ...Option) *Gallery {
	g := &Gallery{
		source:  source,
		loc:     time.Local,
		pending: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load replaces the list with what the source returns, keeping its order.
// On failure the previous list is kept.
func (g *Gallery) Load(ctx context.Context) error {
	drawings, err := g.source.List(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load drawings")
		return err
	}

	g.mu.Lock()
	g.items = drawings
	g.mu.Unlock()

	logrus.WithField("count", len(drawings)).Debug("Gallery loaded")
	return nil
}

func (g *Gallery) Items() []*core.Drawing {
	g.mu.RLock()
	defer g.mu.RUnlock()
	items := make([]*core.Drawing, len(g.items))
	copy(items, g.items)
	return items
}

func (g *Gallery) Empty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.items) == 0
}

// Pending reports whether a delete of id is in flight.
func (g *Gallery) Pending(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pending[id]
}

// Delete removes id at the source and then from the local list. Only id is
// marked pending while the request runs.
func (g *Gallery) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	if g.pending[id] {
		g.mu.Unlock()
		return ErrDeletePending
	}
	g.pending[id] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	if err := g.source.Delete(ctx, id); err != nil {
		logrus.WithError(err).WithField("id", id).Warn("Failed to delete drawing")
		return err
	}

	g.mu.Lock()
	kept := make([]*core.Drawing, 0, len(g.items))
	for _, d := range g.items {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	g.items = kept
	g.mu.Unlock()
	return nil
}

type card struct {
	ID        string
	Src       any
	CreatedAt string
	Pending   bool
}

var gridTemplate = template.Must(template.New("gallery").Parse(`{{if not .}}<div class="gallery-empty">
  <p class="gallery-empty-title">` + EmptyTitle + `</p>
  <p class="gallery-empty-hint">` + EmptyHint + `</p>
</div>
{{else}}<div class="gallery-grid">
{{range .}}  <figure class="gallery-card" data-id="{{.ID}}">
    <img src="{{.Src}}" alt="Drawing">
    <button class="gallery-delete" data-id="{{.ID}}"{{if .Pending}} disabled{{end}}>{{if .Pending}}삭제 중...{{else}}삭제{{end}}</button>
    <figcaption>{{.CreatedAt}}</figcaption>
  </figure>
{{end}}</div>
{{end}}`))

// Render writes the grid of thumbnails, or the empty-state guidance when
// there is nothing to show.
func (g *Gallery) Render(w io.Writer) error {
	g.mu.RLock()
	cards := make([]card, 0, len(g.items))
	for _, d := range g.items {
		cards = append(cards, card{
			ID:        d.ID,
			Src:       imageSource(d.ImageData),
			CreatedAt: FormatKorean(d.CreatedAt, g.loc),
			Pending:   g.pending[d.ID],
		})
	}
	g.mu.RUnlock()

	if err := gridTemplate.Execute(w, cards); err != nil {
		return fmt.Errorf("failed to render gallery: %w", err)
	}
	return nil
}

// imageSource trusts only data:image payloads; anything else goes through
// the template's URL sanitizer.
func imageSource(imageData string) any {
	if strings.HasPrefix(imageData, "data:image/") {
		return template.URL(imageData)
	}
	return imageData
}

// FormatKorean renders a stored timestamp the way a ko-KR locale shows it,
// e.g. "2024. 5. 1. 오전 9:30:00". Unparseable values are returned as is.
func FormatKorean(createdAt string, loc *time.Location) string {
	t, err := time.Parse(core.TimestampLayout, createdAt)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return createdAt
		}
	}
	if loc != nil {
		t = t.In(loc)
	}

	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}
