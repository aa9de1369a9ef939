// Package postgres implements the store port on PostgreSQL (pgx stdlib
// driver). List saves are whole-list replacements executed in a single
// transaction, so every port call stays one atomic read-modify-write unit.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/elyesghazel/notedown/internal/dbx"
	"github.com/elyesghazel/notedown/internal/server/migrations"
	"github.com/elyesghazel/notedown/internal/server/models"
)

type Store struct {
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// NewStore opens a connection pool for the given DSN and runs the embedded
// migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

// NewStoreWithDB wraps an existing connection without running migrations.
// Used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

func (s *Store) ListDocuments(ctx context.Context, ownerScope string) ([]models.Document, error) {
	query := `SELECT id, owner_scope, content, updated_at FROM documents WHERE owner_scope = $1`

	rows, err := s.db.QueryContext(ctx, query, ownerScope)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerScope, &doc.Content, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SaveDocuments(ctx context.Context, ownerScope string, docs []models.Document) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE owner_scope = $1`, ownerScope); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		query := `
			INSERT INTO documents (id, owner_scope, content, updated_at)
			VALUES ($1, $2, $3, $4)
		`
		for _, doc := range docs {
			if _, err := tx.ExecContext(ctx, query, doc.ID, ownerScope, doc.Content, doc.UpdatedAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListOwnerScopes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner_scope FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to select owner scopes: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		result = append(result, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	query := `SELECT uuid, doc_id, owner_scope, editable, edit_password_hash, content, published_at FROM snapshots`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select snapshots: %w", err)
	}
	defer rows.Close()

	var result []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var ownerScope, passwordHash sql.NullString
		if err := rows.Scan(&snap.UUID, &snap.DocID, &ownerScope, &snap.Editable,
			&passwordHash, &snap.Content, &snap.PublishedAt); err != nil {
			return nil, err
		}
		snap.OwnerScope = ownerScope.String
		snap.EditPasswordHash = passwordHash.String
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SaveSnapshots(ctx context.Context, snaps []models.Snapshot) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		query := `
			INSERT INTO snapshots (uuid, doc_id, owner_scope, editable, edit_password_hash, content, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		for _, snap := range snaps {
			ownerScope := sql.NullString{String: snap.OwnerScope, Valid: snap.OwnerScope != ""}
			passwordHash := sql.NullString{String: snap.EditPasswordHash, Valid: snap.EditPasswordHash != ""}
			if _, err := tx.ExecContext(ctx, query, snap.UUID, snap.DocID, ownerScope,
				snap.Editable, passwordHash, snap.Content, snap.PublishedAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
