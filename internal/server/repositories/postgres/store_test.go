package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/elyesghazel/notedown/internal/server/models"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewStoreWithDB(db), mock, db
}

func TestListDocuments(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_scope", "content", "updated_at"}).
		AddRow("d1", "u1", "hello", now).
		AddRow("d2", "u1", "world", now)

	mock.ExpectQuery(`SELECT id, owner_scope, content, updated_at FROM documents WHERE owner_scope = \$1`).
		WithArgs("u1").
		WillReturnRows(rows)

	docs, err := s.ListDocuments(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "d1" || docs[0].Content != "hello" {
		t.Fatalf("unexpected first document: %+v", docs[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveDocuments_ReplacesListInTx(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents WHERE owner_scope = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("d1", "u1", "hello", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SaveDocuments(context.Background(), "u1", []models.Document{
		{ID: "d1", OwnerScope: "u1", Content: "hello", UpdatedAt: now},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSnapshots_NullableColumns(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"uuid", "doc_id", "owner_scope", "editable", "edit_password_hash", "content", "published_at"}).
		AddRow("abc", "d1", nil, true, nil, "v1", now).
		AddRow("def", "d2", "u2", false, "$argon2id$...", "v2", now)

	mock.ExpectQuery(`SELECT uuid, doc_id, owner_scope, editable, edit_password_hash, content, published_at FROM snapshots`).
		WillReturnRows(rows)

	snaps, err := s.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].OwnerScope != "" || snaps[0].EditPasswordHash != "" {
		t.Fatalf("expected empty nullable fields, got %+v", snaps[0])
	}
	if snaps[1].OwnerScope != "u2" {
		t.Fatalf("expected resolved owner scope, got %+v", snaps[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveSnapshots_WritesNulls(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM snapshots`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO snapshots`).
		WithArgs("abc", "d1", sql.NullString{}, true, sql.NullString{}, "v1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SaveSnapshots(context.Background(), []models.Snapshot{
		{UUID: "abc", DocID: "d1", Editable: true, Content: "v1", PublishedAt: now},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
