package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// GetWatermark returns the stored watermark for source, or NotFound if
// no sync has advanced it yet.
func (s *Store) GetWatermark(ctx context.Context, source string) (*model.Watermark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source, value, updated_at FROM watermarks WHERE source = ?`, source)

	var w model.Watermark
	if err := row.Scan(&w.Source, &w.Value, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &coreerrors.NotFound{Entity: "watermark", ID: source}
		}
		return nil, err
	}
	return &w, nil
}

// SetWatermark upserts the watermark for source.
func (s *Store) SetWatermark(ctx context.Context, source, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watermarks (source, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, source, value)
	return err
}
