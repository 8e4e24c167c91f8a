package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/testsupport"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newPendingJob(subjectID uint, kind string) *model.ExportJob {
	key := model.ExportActiveKey(subjectID, kind)
	return &model.ExportJob{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Kind:      kind,
		Status:    model.ExportStatusPending,
		ActiveKey: &key,
	}
}

func TestExportJobRepository_ActiveKeyIsUnique(t *testing.T) {
	repo := NewExportJobRepository(testsupport.NewDB(t))
	ctx := context.Background()

	first := newPendingJob(1, "pdf")
	require.NoError(t, repo.Create(ctx, first))
	err := repo.Create(ctx, newPendingJob(1, "pdf"))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.Create(ctx, newPendingJob(1, "json")))
	require.NoError(t, repo.Create(ctx, newPendingJob(2, "pdf")))

	active, err := repo.FindActive(ctx, 1, "pdf")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
}

func TestExportJobRepository_TransitionsOnlyFromPending(t *testing.T) {
	repo := NewExportJobRepository(testsupport.NewDB(t))
	ctx := context.Background()

	job := newPendingJob(1, "pdf")
	require.NoError(t, repo.Create(ctx, job))

	moved, err := repo.MarkReady(ctx, job.ID, "http://media/a.pdf")
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.MarkFailed(ctx, job.ID, "late failure")
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusReady, stored.Status)
	require.NotNil(t, stored.URL)
	assert.Equal(t, "http://media/a.pdf", *stored.URL)
	assert.Nil(t, stored.Error)
}

func TestExportJobRepository_FailureReleasesActiveKey(t *testing.T) {
	repo := NewExportJobRepository(testsupport.NewDB(t))
	ctx := context.Background()

	job := newPendingJob(1, "pdf")
	require.NoError(t, repo.Create(ctx, job))
	moved, err := repo.MarkFailed(ctx, job.ID, "boom")
	require.NoError(t, err)
	assert.True(t, moved)

	active, err := repo.FindActive(ctx, 1, "pdf")
	require.NoError(t, err)
	assert.Nil(t, active)

	retry := newPendingJob(1, "pdf")
	require.NoError(t, repo.Create(ctx, retry))

	jobs, err := repo.ListBySubject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, model.ExportStatusFailed, jobs[0].Status)
	assert.Equal(t, retry.ID, jobs[1].ID)

	failed, err := repo.ListByStatus(ctx, model.ExportStatusFailed, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
	all, err := repo.ListByStatus(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func newMockRepo(t *testing.T) (*ExportJobRepository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	conn, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	return NewExportJobRepository(conn), mock
}

func TestExportJobRepository_MarkReadyIsConditional(t *testing.T) {
	repo, mock := newMockRepo(t)
	update := regexp.QuoteMeta("UPDATE `export_jobs` SET")

	mock.ExpectBegin()
	mock.ExpectExec(update + ".*WHERE \\(id = \\? AND status = \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	moved, err := repo.MarkReady(context.Background(), "job-1", "http://media/a.pdf")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepository_MarkFailedError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `export_jobs` SET")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	moved, err := repo.MarkFailed(context.Background(), "job-1", "boom")
	assert.False(t, moved)
	assert.ErrorContains(t, err, "mark export job failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepository_FailStale(t *testing.T) {
	repo := NewExportJobRepository(testsupport.NewDB(t))
	ctx := context.Background()
	now := time.Now()

	lost := newPendingJob(1, "pdf")
	lost.CreatedAt = now.Add(-time.Hour)
	fresh := newPendingJob(2, "pdf")
	fresh.CreatedAt = now
	done := newPendingJob(3, "pdf")
	done.CreatedAt = now.Add(-time.Hour)
	for _, j := range []*model.ExportJob{lost, fresh, done} {
		require.NoError(t, repo.Create(ctx, j))
	}
	ok, err := repo.MarkReady(ctx, done.ID, "http://x/done.pdf")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := repo.FailStale(ctx, now.Add(-time.Minute), "abandoned")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.FindByID(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "abandoned", *got.Error)
	assert.Nil(t, got.ActiveKey)

	active, err := repo.FindActive(ctx, 1, "pdf")
	require.NoError(t, err)
	assert.Nil(t, active)
	require.NoError(t, repo.Create(ctx, newPendingJob(1, "pdf")))

	for id, want := range map[string]model.ExportStatus{fresh.ID: model.ExportStatusPending, done.ID: model.ExportStatusReady} {
		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	n, err = repo.FailStale(ctx, now.Add(-time.Minute), "abandoned")
	require.NoError(t, err)
	assert.Zero(t, n)
}
