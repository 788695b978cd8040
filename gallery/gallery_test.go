package gallery

import (
	"bytes"
	"context"
	"drawboard-server/core"
	"drawboard-server/stores/memory"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockSource serves a fixed list and lets a test hold deletes open.
type mockSource struct {
	mu        sync.Mutex
	drawings  []*core.Drawing
	listErr   error
	deleteErr error
	deleted   []string
	block     chan struct{}
	started   chan string
}

func (m *mockSource) List(ctx context.Context) ([]*core.Drawing, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.drawings, nil
}

func (m *mockSource) Delete(ctx context.Context, id string) error {
	if m.started != nil {
		m.started <- id
	}
	if m.block != nil {
		<-m.block
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	return nil
}

func sample() []*core.Drawing {
	return []*core.Drawing{
		{ID: "c", ImageData: "data:image/png;base64,Q0NDQw==", CreatedAt: "2024-05-03T00:00:00.000Z"},
		{ID: "b", ImageData: "data:image/png;base64,QkJCQg==", CreatedAt: "2024-05-02T00:00:00.000Z"},
		{ID: "a", ImageData: "data:image/png;base64,QUFBQQ==", CreatedAt: "2024-05-01T00:00:00.000Z"},
	}
}

func ids(items []*core.Drawing) string {
	var parts []string
	for _, d := range items {
		parts = append(parts, d.ID)
	}
	return strings.Join(parts, ",")
}

func TestLoad_KeepsSourceOrder(t *testing.T) {
	src := &mockSource{drawings: []*core.Drawing{
		{ID: "x", CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "y", CreatedAt: "2024-06-01T00:00:00.000Z"},
	}}
	g := New(src)

	if err := g.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := ids(g.Items()); got != "x,y" {
		t.Errorf("gallery re-sorted the list: %s", got)
	}
}

func TestLoad_FailureKeepsPreviousList(t *testing.T) {
	src := &mockSource{drawings: sample()}
	g := New(src)
	if err := g.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	src.listErr = errors.New("Failed to fetch drawings")
	if err := g.Load(context.Background()); err == nil {
		t.Fatal("Expected load error")
	}
	if got := ids(g.Items()); got != "c,b,a" {
		t.Errorf("previous list lost: %s", got)
	}
}

func TestEmpty(t *testing.T) {
	g := New(&mockSource{})
	if !g.Empty() {
		t.Error("unloaded gallery should be empty")
	}
	if err := g.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !g.Empty() {
		t.Error("gallery over an empty source should be empty")
	}
}

func TestDelete_RemovesLocally(t *testing.T) {
	src := &mockSource{drawings: sample()}
	g := New(src)
	g.Load(context.Background())

	if err := g.Delete(context.Background(), "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := ids(g.Items()); got != "c,a" {
		t.Errorf("unexpected items after delete: %s", got)
	}
	if g.Pending("b") {
		t.Error("pending flag should clear after the delete")
	}
}

func TestDelete_FailureKeepsList(t *testing.T) {
	src := &mockSource{drawings: sample(), deleteErr: errors.New("Drawing not found")}
	g := New(src)
	g.Load(context.Background())

	if err := g.Delete(context.Background(), "b"); err == nil {
		t.Fatal("Expected delete error")
	}
	if got := ids(g.Items()); got != "c,b,a" {
		t.Errorf("list changed after a failed delete: %s", got)
	}
	if g.Pending("b") {
		t.Error("pending flag should clear after a failed delete")
	}
}

func TestDelete_PendingIsPerItem(t *testing.T) {
	src := &mockSource{
		drawings: sample(),
		block:    make(chan struct{}),
		started:  make(chan string, 2),
	}
	g := New(src)
	g.Load(context.Background())

	errs := make(chan error, 2)
	go func() { errs <- g.Delete(context.Background(), "a") }()
	<-src.started

	if !g.Pending("a") {
		t.Error("item under deletion should be pending")
	}
	if g.Pending("c") {
		t.Error("other items must stay usable")
	}
	if err := g.Delete(context.Background(), "a"); !errors.Is(err, ErrDeletePending) {
		t.Errorf("Expected ErrDeletePending, got %v", err)
	}

	go func() { errs <- g.Delete(context.Background(), "c") }()
	<-src.started
	if !g.Pending("c") {
		t.Error("second item should be pending too")
	}

	close(src.block)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Delete failed: %v", err)
		}
	}
	if got := ids(g.Items()); got != "b" {
		t.Errorf("unexpected items: %s", got)
	}
}

func TestRender_Empty(t *testing.T) {
	g := New(&mockSource{})

	var buf bytes.Buffer
	if err := g.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, EmptyTitle) || !strings.Contains(out, EmptyHint) {
		t.Errorf("empty-state guidance missing: %s", out)
	}
	if strings.Contains(out, "gallery-grid") {
		t.Error("empty gallery should not render a grid")
	}
}

func TestRender_Grid(t *testing.T) {
	drawings := sample()
	drawings = append(drawings, &core.Drawing{ID: "evil", ImageData: "javascript:alert(1)", CreatedAt: "garbage"})
	g := New(&mockSource{drawings: drawings}, WithLocation(time.UTC))
	g.Load(context.Background())

	var buf bytes.Buffer
	if err := g.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()

	if strings.Count(out, `class="gallery-card"`) != 4 {
		t.Errorf("expected 4 cards: %s", out)
	}
	if !strings.Contains(out, `src="data:image/png;base64,Q0NDQw=="`) {
		t.Error("data url thumbnail missing")
	}
	if strings.Contains(out, "javascript:") {
		t.Error("unsafe image source was not sanitized")
	}
	if !strings.Contains(out, "2024. 5. 3. 오전 12:00:00") {
		t.Errorf("localized timestamp missing: %s", out)
	}
	if strings.Index(out, `data-id="c"`) > strings.Index(out, `data-id="a"`) {
		t.Error("cards out of order")
	}
}

func TestFormatKorean(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)

	testCases := []struct {
		in   string
		loc  *time.Location
		want string
	}{
		{"2024-05-01T00:30:00.123Z", kst, "2024. 5. 1. 오전 9:30:00"},
		{"2024-05-01T05:05:09.000Z", kst, "2024. 5. 1. 오후 2:05:09"},
		{"2024-12-31T15:00:00.000Z", kst, "2025. 1. 1. 오전 12:00:00"},
		{"2024-05-01T12:00:00.000Z", time.UTC, "2024. 5. 1. 오후 12:00:00"},
		{"2024-05-01T12:00:00Z", time.UTC, "2024. 5. 1. 오후 12:00:00"},
		{"yesterday", time.UTC, "yesterday"},
	}

	for _, tc := range testCases {
		if got := FormatKorean(tc.in, tc.loc); got != tc.want {
			t.Errorf("FormatKorean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGallery_OverRepository(t *testing.T) {
	repo := core.NewRepository(memory.NewDrawingStore())
	ctx := context.Background()
	first, _ := repo.Insert(ctx, "data:image/png;base64,AAA")
	second, _ := repo.Insert(ctx, "data:image/png;base64,BBB")

	g := New(repo)
	if err := g.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := ids(g.Items()); got != second+","+first {
		t.Errorf("expected newest first, got %s", got)
	}

	if err := g.Delete(ctx, first); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := g.Delete(ctx, first); core.KindOf(err) != core.KindNotFound {
		t.Errorf("Expected not-found on second delete, got %v", err)
	}
}
