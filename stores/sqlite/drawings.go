package sqlite

import (
	"context"
	"database/sql"
	"drawboard-server/core"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type drawingStore struct {
	db *sql.DB
}

// NewDrawingStore opens the database at dataSourceName and ensures the
// drawings table exists.
func NewDrawingStore(dataSourceName string) (*drawingStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection serializes writers, which SQLite requires anyway,
	// and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	stmt := `CREATE TABLE IF NOT EXISTS drawings (
		id TEXT PRIMARY KEY,
		image_data TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`
	if _, err = db.Exec(stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create drawings table: %w", err)
	}

	return &drawingStore{db}, nil
}

func (s *drawingStore) List(ctx context.Context) ([]*core.Drawing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, image_data, created_at FROM drawings ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query drawings: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close drawing rows")
		}
	}()

	var drawings []*core.Drawing
	for rows.Next() {
		var d core.Drawing
		if err := rows.Scan(&d.ID, &d.ImageData, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan drawing: %w", err)
		}
		drawings = append(drawings, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logrus.WithField("count", len(drawings)).Debug("Drawings listed")
	return drawings, nil
}

func (s *drawingStore) Create(ctx context.Context, drawing *core.Drawing) (string, error) {
	id := core.NewID()
	log := logrus.WithFields(logrus.Fields{
		"drawing_id":  id,
		"data_length": len(drawing.ImageData),
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO drawings (id, image_data, created_at) VALUES (?, ?, ?)",
		id, drawing.ImageData, drawing.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert drawing: %w", err)
	}
	log.Info("Drawing created successfully")
	return id, nil
}

func (s *drawingStore) Delete(ctx context.Context, id string) error {
	log := logrus.WithField("drawing_id", id)

	result, err := s.db.ExecContext(ctx, "DELETE FROM drawings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete drawing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("drawing with id %s: %w", id, core.ErrNotFound)
	}

	log.Info("Drawing deleted successfully")
	return nil
}

func (s *drawingStore) Close() error {
	return s.db.Close()
}
