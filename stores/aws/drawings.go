package aws

import (
	"bytes"
	"context"
	"drawboard-server/core"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPrefix = "drawings/"
	objectExt     = ".json"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
}

// NewDrawingStore creates an S3-backed store. endpoint is optional and
// switches to path-style addressing for S3 compatible servers such as MinIO.
func NewDrawingStore(ctx context.Context, bucketName, prefix, endpoint string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &s3Store{
		s3Client: s3Client,
		bucket:   bucketName,
		prefix:   prefix,
	}, nil
}

func (s *s3Store) objectKey(id string) string {
	return s.prefix + id + objectExt
}

func (s *s3Store) isDrawingKey(key string) bool {
	rest, ok := strings.CutPrefix(key, s.prefix)
	return ok && strings.HasSuffix(rest, objectExt) && !strings.Contains(rest, "/")
}

func (s *s3Store) List(ctx context.Context) ([]*core.Drawing, error) {
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var drawings []*core.Drawing
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list drawings: %w", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !s.isDrawingKey(key) {
				continue
			}
			drawing, err := s.get(ctx, key)
			if err != nil {
				var nsk *s3types.NoSuchKey
				if errors.As(err, &nsk) {
					// deleted after the listing
					continue
				}
				return nil, err
			}
			drawings = append(drawings, drawing)
		}
	}

	sort.Slice(drawings, func(i, j int) bool {
		return core.Newer(drawings[i], drawings[j])
	})
	return drawings, nil
}

func (s *s3Store) get(ctx context.Context, key string) (*core.Drawing, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get drawing %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read drawing %s: %w", key, err)
	}

	var drawing core.Drawing
	if err := json.Unmarshal(data, &drawing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drawing %s: %w", key, err)
	}
	return &drawing, nil
}

func (s *s3Store) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	stored := *drawing
	stored.ID = core.NewID()

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal drawing: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(stored.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload drawing: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"drawing_id":  stored.ID,
		"data_length": len(stored.ImageData),
		"bucket":      s.bucket,
	}).Info("Drawing created successfully")
	return stored.ID, nil
}

// Delete checks for the object first: S3 deletes succeed for missing keys.
func (s *s3Store) Delete(ctx context.Context, id string) error {
	key := s.objectKey(id)

	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("failed to stat drawing %s: %w", id, err)
	}

	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete drawing %s: %w", id, err)
	}

	logrus.WithField("drawing_id", id).Info("Drawing deleted successfully")
	return nil
}

func (s *s3Store) Close() error {
	return nil
}
