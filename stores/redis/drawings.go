package redis

import (
	"context"
	"drawboard-server/core"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultURL = "redis://localhost:6379/0"
	keyPrefix  = "drawboard:"
	indexKey   = keyPrefix + "drawings"
)

// drawingStore keeps each drawing in a hash and orders them with a sorted set
// scored by createdAt in milliseconds. ZREVRANGE breaks score ties by member
// in reverse lexical order, which matches the id tie-break.
type drawingStore struct {
	client *goredis.Client
}

func NewDrawingStore(url string) (*drawingStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return newDrawingStore(goredis.NewClient(opts)), nil
}

func newDrawingStore(client *goredis.Client) *drawingStore {
	return &drawingStore{client: client}
}

func drawingKey(id string) string {
	return keyPrefix + "drawing:" + id
}

func score(createdAt string) (float64, error) {
	t, err := time.Parse(core.TimestampLayout, createdAt)
	if err != nil {
		return 0, fmt.Errorf("invalid createdAt %q: %w", createdAt, err)
	}
	return float64(t.UnixMilli()), nil
}

func (s *drawingStore) List(ctx context.Context) ([]*core.Drawing, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, drawingKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read drawings: %w", err)
	}

	drawings := make([]*core.Drawing, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between the two reads
			continue
		}
		drawings = append(drawings, &core.Drawing{
			ID:        ids[i],
			ImageData: fields["imageData"],
			CreatedAt: fields["createdAt"],
		})
	}

	logrus.WithField("count", len(drawings)).Debug("Drawings listed")
	return drawings, nil
}

func (s *drawingStore) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	sc, err := score(drawing.CreatedAt)
	if err != nil {
		return "", err
	}

	id := core.NewID()
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, drawingKey(id), "imageData", drawing.ImageData, "createdAt", drawing.CreatedAt)
		pipe.ZAdd(ctx, indexKey, goredis.Z{Score: sc, Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert drawing: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"drawing_id":  id,
		"data_length": len(drawing.ImageData),
	}).Info("Drawing created successfully")
	return id, nil
}

func (s *drawingStore) Delete(ctx context.Context, id string) error {
	var removed *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		removed = pipe.ZRem(ctx, indexKey, id)
		pipe.Del(ctx, drawingKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete drawing: %w", err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
	}

	logrus.WithField("drawing_id", id).Info("Drawing deleted successfully")
	return nil
}

func (s *drawingStore) Close() error {
	return s.client.Close()
}
