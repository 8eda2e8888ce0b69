package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxoscn/avalon-sub003/pkg/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func snapshotJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(models.ToolConfigSnapshot{
		Endpoint: "https://example.com/api",
		Method:   "POST",
	})
	require.NoError(t, err)
	return data
}

func TestCreateVersionAllocatesNextNumberUnderLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT current_version FROM tools WHERE tenant_id = $1 AND id = $2 FOR UPDATE`)).
		WithArgs("tenant-1", "tool-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COALESCE(MAX(version), 0) + 1 FROM tool_versions WHERE tool_id = $1`)).
		WithArgs("tool-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tool_versions`)).
		WithArgs("ver-1", "tool-1", "tenant-1", 4, sqlmock.AnyArg(), "changed endpoint", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE tools SET current_version = $3, config = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`)).
		WithArgs("tenant-1", "tool-1", 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version := &models.ToolVersion{
		ID:       "ver-1",
		ToolID:   "tool-1",
		TenantID: "tenant-1",
		Config: models.ToolConfigSnapshot{
			Endpoint: "https://example.com/api",
			Method:   "POST",
		},
		ChangeLog: "changed endpoint",
		CreatedBy: "user-1",
		CreatedAt: time.Now(),
	}

	err := repo.CreateVersion(context.Background(), version)
	require.NoError(t, err)
	assert.Equal(t, 4, version.Version, "allocated number is written back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersionUnknownToolReturnsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT current_version FROM tools WHERE tenant_id = $1 AND id = $2 FOR UPDATE`)).
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateVersion(context.Background(), &models.ToolVersion{
		ToolID:   "missing",
		TenantID: "tenant-1",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByToolReturnsNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tool_id", "tenant_id", "version", "config", "change_log", "created_by", "created_at"}).
		AddRow("ver-3", "tool-1", "tenant-1", 3, snapshotJSON(t), "v3", "user-1", now).
		AddRow("ver-2", "tool-1", "tenant-1", 2, snapshotJSON(t), "v2", "user-1", now).
		AddRow("ver-1", "tool-1", "tenant-1", 1, snapshotJSON(t), "v1", "user-1", now)

	mock.ExpectQuery(`SELECT .+ FROM tool_versions`).
		WithArgs("tenant-1", "tool-1").
		WillReturnRows(rows)

	versions, err := repo.ListByTool(context.Background(), "tenant-1", "tool-1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 1, versions[2].Version)
	assert.Equal(t, "https://example.com/api", versions[0].Config.Endpoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByToolAndVersionMissingReturnsVersionNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM tool_versions`).
		WithArgs("tenant-1", "tool-1", 9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByToolAndVersion(context.Background(), "tenant-1", "tool-1", 9)
	assert.ErrorIs(t, err, models.ErrVersionNotFound)
}

func TestSetCurrentVersionRepointsToolOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT config FROM tool_versions WHERE tenant_id = $1 AND tool_id = $2 AND version = $3`)).
		WithArgs("tenant-1", "tool-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"config"}).AddRow(snapshotJSON(t)))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE tools SET current_version = $3, config = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`)).
		WithArgs("tenant-1", "tool-1", 2, snapshotJSON(t), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetCurrentVersion(context.Background(), "tenant-1", "tool-1", 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCurrentVersionMissingTargetFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT config FROM tool_versions WHERE tenant_id = $1 AND tool_id = $2 AND version = $3`)).
		WithArgs("tenant-1", "tool-1", 9).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.SetCurrentVersion(context.Background(), "tenant-1", "tool-1", 9)
	assert.ErrorIs(t, err, models.ErrVersionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCurrentVersionUnknownToolFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT config FROM tool_versions WHERE tenant_id = $1 AND tool_id = $2 AND version = $3`)).
		WithArgs("tenant-1", "missing", 2).
		WillReturnRows(sqlmock.NewRows([]string{"config"}).AddRow(snapshotJSON(t)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tools SET current_version`)).
		WithArgs("tenant-1", "missing", 2, snapshotJSON(t), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetCurrentVersion(context.Background(), "tenant-1", "missing", 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
