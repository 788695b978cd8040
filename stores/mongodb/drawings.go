package mongodb

import (
	"context"
	"drawboard-server/core"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	DefaultURI        = "mongodb://localhost:27017"
	DefaultDatabase   = "drawboard"
	DefaultCollection = "drawings"
)

type drawingStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewDrawingStore connects a pooled client to uri. The server is pinged once;
// an unreachable server is logged rather than fatal because the driver keeps
// trying to reconnect.
func NewDrawingStore(ctx context.Context, uri, database string) (*drawingStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		logrus.WithError(err).Warn("MongoDB is not reachable yet")
	}

	return &drawingStore{
		client:     client,
		collection: client.Database(database).Collection(DefaultCollection),
	}, nil
}

func (s *drawingStore) List(ctx context.Context) ([]*core.Drawing, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query drawings: %w", err)
	}

	var drawings []*core.Drawing
	if err := cursor.All(ctx, &drawings); err != nil {
		return nil, fmt.Errorf("failed to decode drawings: %w", err)
	}

	logrus.WithField("count", len(drawings)).Debug("Drawings listed")
	return drawings, nil
}

func (s *drawingStore) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	stored := *drawing
	stored.ID = core.NewID()

	if _, err := s.collection.InsertOne(ctx, &stored); err != nil {
		return "", fmt.Errorf("failed to insert drawing: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"drawing_id":  stored.ID,
		"data_length": len(stored.ImageData),
	}).Info("Drawing created successfully")
	return stored.ID, nil
}

func (s *drawingStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete drawing: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
	}

	logrus.WithField("drawing_id", id).Info("Drawing deleted successfully")
	return nil
}

func (s *drawingStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
