package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxoscn/avalon-sub003/pkg/models"
)

func toolRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "display_name", "description",
		"current_version", "config", "status", "created_by", "created_at", "updated_at",
	}).AddRow("tool-1", "tenant-1", "jira", "Jira", "issue tracker",
		3, snapshotJSON(t), "active", "user-1", now, now)
}

func TestGetByIDScansConfigSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM tools WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs("tenant-1", "tool-1").
		WillReturnRows(toolRows(t))

	tool, err := repo.GetByID(context.Background(), "tenant-1", "tool-1")
	require.NoError(t, err)
	assert.Equal(t, "jira", tool.Name)
	assert.Equal(t, 3, tool.CurrentVersion)
	assert.Equal(t, "https://example.com/api", tool.Config.Endpoint)
	assert.Equal(t, "POST", tool.Config.Method)
}

func TestGetByIDMissingReturnsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM tools`).
		WithArgs("tenant-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM tools WHERE tenant_id = \$1 AND status = \$2`).
		WithArgs("tenant-1", "active").
		WillReturnRows(toolRows(t))

	tools, err := repo.List(context.Background(), "tenant-1", "active")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "tool-1", tools[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsMarshaledConfig(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tools`)).
		WithArgs("tool-1", "tenant-1", "jira", "Jira", "",
			0, sqlmock.AnyArg(), "active", "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now()
	err := repo.Create(context.Background(), &models.Tool{
		ID:          "tool-1",
		TenantID:    "tenant-1",
		Name:        "jira",
		DisplayName: "Jira",
		Config:      models.ToolConfigSnapshot{Endpoint: "https://example.com/api", Method: "POST"},
		Status:      "active",
		CreatedBy:   "user-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingToolReturnsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tools WHERE tenant_id = $1 AND id = $2`)).
		WithArgs("tenant-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "tenant-1", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatusAffectsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewToolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tools SET status = $3, updated_at = $4`)).
		WithArgs("tenant-1", "tool-1", "inactive", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "tenant-1", "tool-1", "inactive")
	assert.NoError(t, err)
}
