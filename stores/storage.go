package stores

import (
	"context"
	"drawboard-server/config"
	"drawboard-server/core"
	"drawboard-server/stores/aws"
	"drawboard-server/stores/filesystem"
	"drawboard-server/stores/memory"
	"drawboard-server/stores/mongodb"
	"drawboard-server/stores/redis"
	"drawboard-server/stores/sqlite"
	"fmt"

	"github.com/sirupsen/logrus"
)

// GetStore opens the backend selected by cfg.Type. The returned store owns a
// pooled connection shared by all requests; callers must Close it.
func GetStore(ctx context.Context, cfg config.Storage) (core.DrawingStore, error) {
	var (
		store core.DrawingStore
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "mongodb":
		storageField["database"] = cfg.MongoDatabase
		store, err = mongodb.NewDrawingStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewDrawingStore(cfg.DataSourceName)
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store, err = filesystem.NewDrawingStore(cfg.LocalPath)
	case "redis":
		store, err = redis.NewDrawingStore(cfg.RedisURL)
	case "s3":
		storageField["bucketName"] = cfg.S3Bucket
		store, err = aws.NewDrawingStore(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint)
	case "memory":
		store = memory.NewDrawingStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Type, err)
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
