package filesystem

import (
	"context"
	"drawboard-server/core"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) (*drawingStore, string) {
	t.Helper()
	basePath := filepath.Join(t.TempDir(), "drawings")
	store, err := NewDrawingStore(basePath)
	if err != nil {
		t.Fatalf("NewDrawingStore() failed: %v", err)
	}
	return store, basePath
}

func TestNewDrawingStore_CreatesDirectory(t *testing.T) {
	_, basePath := setupTestStore(t)

	info, err := os.Stat(basePath)
	if err != nil {
		t.Fatalf("base directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("base path is not a directory")
	}
}

func TestCreate_WritesFile(t *testing.T) {
	store, basePath := setupTestStore(t)

	id, err := store.Create(context.Background(), &core.Drawing{
		ImageData: "data:image/png;base64,AAA",
		CreatedAt: "2024-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(basePath, id+".json")); err != nil {
		t.Errorf("drawing file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(basePath, id+".json.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestList_OrderingAndSkipsForeignFiles(t *testing.T) {
	store, basePath := setupTestStore(t)
	ctx := context.Background()

	timestamps := []string{
		"2024-03-01T10:00:00.000Z",
		"2024-03-02T09:00:00.000Z",
		"2023-12-31T23:59:59.999Z",
	}
	for i, ts := range timestamps {
		if _, err := store.Create(ctx, &core.Drawing{ImageData: fmt.Sprintf("img-%d", i), CreatedAt: ts}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	os.WriteFile(filepath.Join(basePath, "README.txt"), []byte("not a drawing"), 0644)
	os.WriteFile(filepath.Join(basePath, "broken.json"), []byte("{not json"), 0644)
	os.Mkdir(filepath.Join(basePath, "nested.json"), 0755)

	drawings, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	want := []string{"img-1", "img-0", "img-2"}
	if len(drawings) != len(want) {
		t.Fatalf("expected %d drawings, got %d", len(want), len(drawings))
	}
	for i, w := range want {
		if drawings[i].ImageData != w {
			t.Errorf("position %d: got %s, want %s", i, drawings[i].ImageData, w)
		}
		if !core.ValidID(drawings[i].ID) {
			t.Errorf("position %d: invalid id %q", i, drawings[i].ID)
		}
	}
}

func TestDelete(t *testing.T) {
	store, basePath := setupTestStore(t)
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Drawing{ImageData: "a", CreatedAt: "2024-01-01T00:00:00.000Z"})

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(basePath, id+".json")); !os.IsNotExist(err) {
		t.Error("drawing file still present")
	}
	if err := store.Delete(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() should return ErrNotFound, got %v", err)
	}
}

func TestDelete_PathTraversal(t *testing.T) {
	store, basePath := setupTestStore(t)

	outside := filepath.Join(filepath.Dir(basePath), "victim.json")
	if err := os.WriteFile(outside, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../victim", "..", ".", "", "a/b"} {
		if err := store.Delete(context.Background(), id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Delete(%q) should be ErrNotFound, got %v", id, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside the store was removed")
	}
}
