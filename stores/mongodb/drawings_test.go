package mongodb

import (
	"context"
	"drawboard-server/core"
	"errors"
	"fmt"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// These tests need a live server: MONGODB_TEST_URI=mongodb://localhost:27017
func setupTestStore(t *testing.T) *drawingStore {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("skipping mongodb store tests: MONGODB_TEST_URI not set")
	}

	database := "drawboard_test_" + core.NewID()
	store, err := NewDrawingStore(context.Background(), uri, database)
	if err != nil {
		t.Fatalf("NewDrawingStore() failed: %v", err)
	}
	t.Cleanup(func() {
		store.client.Database(database).Drop(context.Background())
		store.Close()
	})
	return store
}

func TestCreateAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	timestamps := []string{
		"2024-03-01T10:00:00.000Z",
		"2024-03-02T09:00:00.000Z",
		"2023-12-31T23:59:59.999Z",
		"2024-03-02T09:00:00.000Z",
	}
	for i, ts := range timestamps {
		if _, err := store.Create(ctx, &core.Drawing{ImageData: fmt.Sprintf("img-%d", i), CreatedAt: ts}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	drawings, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	want := []string{"img-3", "img-1", "img-0", "img-2"}
	if len(drawings) != len(want) {
		t.Fatalf("expected %d drawings, got %d", len(want), len(drawings))
	}
	for i, w := range want {
		if drawings[i].ImageData != w {
			t.Errorf("position %d: got %s, want %s", i, drawings[i].ImageData, w)
		}
	}
}

func TestCreate_StoresStringID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, &core.Drawing{ImageData: "x", CreatedAt: "2024-01-01T00:00:00.000Z"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	var raw bson.M
	if err := store.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw); err != nil {
		t.Fatalf("document not found by string id: %v", err)
	}
	if raw["imageData"] != "x" {
		t.Errorf("imageData mismatch: %v", raw["imageData"])
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Drawing{ImageData: "a", CreatedAt: "2024-01-01T00:00:00.000Z"})

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() should return ErrNotFound, got %v", err)
	}
}
