package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go-relief-hub/internal/model"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingScheduler struct {
	names []string
	tasks []func(ctx context.Context)
}

func (s *recordingScheduler) Schedule(name string, task func(ctx context.Context)) {
	s.names = append(s.names, name)
	s.tasks = append(s.tasks, task)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "uow.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := db.Open(config.DatabaseConfig{Driver: "oracle"})
	assert.EqualError(t, err, "unsupported database driver: oracle")
}

func TestUnitOfWorkSchedulesHooksAfterCommit(t *testing.T) {
	conn := openDB(t)
	sched := &recordingScheduler{}
	uow := db.NewUnitOfWork(conn, sched)

	err := uow.Do(context.Background(), func(tx *db.Tx) error {
		if err := tx.DB.Create(&model.DisasterType{Name: "Flood"}).Error; err != nil {
			return err
		}
		tx.OnCommit("first", func(ctx context.Context) {})
		tx.OnCommit("second", func(ctx context.Context) {})
		assert.Empty(t, sched.names, "hooks must not run inside the transaction")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, sched.names)
	var count int64
	require.NoError(t, conn.Model(&model.DisasterType{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUnitOfWorkRollbackDropsHooks(t *testing.T) {
	conn := openDB(t)
	sched := &recordingScheduler{}
	uow := db.NewUnitOfWork(conn, sched)

	boom := errors.New("boom")
	err := uow.Do(context.Background(), func(tx *db.Tx) error {
		if err := tx.DB.Create(&model.DisasterType{Name: "Flood"}).Error; err != nil {
			return err
		}
		tx.OnCommit("never", func(ctx context.Context) {})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, sched.names)

	var count int64
	require.NoError(t, conn.Model(&model.DisasterType{}).Count(&count).Error)
	assert.Zero(t, count)
}
