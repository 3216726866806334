// Package sqlite stores drafts as JSON documents in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
	"github.com/garyjia/expense-wizard/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a port.DraftStore on SQLite
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

var _ port.DraftStore = (*Store)(nil)

// Open connects to path and applies the drafts schema
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := database.Open(ctx, database.Config{Path: path, MaxOpenConns: 1}, logger)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Save(ctx context.Context, d *wizard.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, step, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			step = excluded.step,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		d.ID(), string(d.Step), string(data), d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano())
	if err != nil {
		s.logger.Error("Failed to save draft", zap.String("report_id", d.ID()), zap.Error(err))
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*wizard.Draft, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM drafts WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var d wizard.Draft
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return port.ErrDraftNotFound
	}
	return nil
}

func (s *Store) DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	var removed []string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id FROM drafts WHERE updated_at < ?", cutoff.UnixNano())
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			removed = append(removed, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM drafts WHERE updated_at < ?", cutoff.UnixNano())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expire drafts: %w", err)
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
