package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportService_PendingThenReady(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Floods", model.ShareWithRCRCNetwork, env.author.ID)

	job, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.ExportStatusPending, job.Status)
	assert.Nil(t, job.URL)

	polled, err := env.export.Poll(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusPending, polled.Status)

	env.release()

	polled, err = env.export.Poll(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusReady, polled.Status)
	require.NotNil(t, polled.URL)
	assert.Contains(t, *polled.URL, "http://test/media/exports/"+job.ID+"/")
	assert.Nil(t, polled.Error)
}

func TestExportService_IdempotentWhilePending(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Floods", model.ShareWithRCRCNetwork, env.author.ID)

	first, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	env.release()

	// a ready job is also returned unchanged
	third, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, model.ExportStatusReady, third.Status)

	jobs, err := env.export.ListForSubject(ctx, fu.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestExportService_ConcurrentRequestsShareOneJob(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Cyclone", model.ShareWithRCRCNetwork, env.author.ID)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		creates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[job.ID] = true
			if created {
				creates++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, creates)

	jobs, err := env.export.ListForSubject(ctx, fu.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestExportService_FailureIsTerminalAndNotRetried(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Drought", model.ShareWithRCRCNetwork, env.author.ID)

	job, _, err := env.export.RequestExport(ctx, fu.ID, "broken")
	require.NoError(t, err)
	env.release()

	failed, err := env.export.Poll(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "template exploded")
	assert.Nil(t, failed.URL)

	// polling again does not move the job
	again, err := env.export.Poll(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusFailed, again.Status)

	// a new request creates a fresh job
	next, created, err := env.export.RequestExport(ctx, fu.ID, "broken")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, job.ID, next.ID)
}

func TestExportService_KindsAreIndependent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Storm", model.ShareWithRCRCNetwork, env.author.ID)

	pdfJob, _, err := env.export.RequestExport(ctx, fu.ID, "pdf")
	require.NoError(t, err)
	jsonJob, _, err := env.export.RequestExport(ctx, fu.ID, "json")
	require.NoError(t, err)
	assert.NotEqual(t, pdfJob.ID, jsonJob.ID)

	env.release()
	for _, id := range []string{pdfJob.ID, jsonJob.ID} {
		job, err := env.export.Poll(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.ExportStatusReady, job.Status, "job %s", id)
	}
}

func TestExportService_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Fire", model.ShareWithRCRCNetwork, env.author.ID)

	_, _, err := env.export.RequestExport(ctx, 9999, "pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = env.export.RequestExport(ctx, fu.ID, "docx")
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "kind")

	_, err = env.export.Poll(ctx, "no-such-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportService_ReapStaleReleasesLostJob(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	fu := testsupport.CreateFlashUpdate(t, env.db, "Landslide", model.ShareWithRCRCNetwork, env.author.ID)

	var skew atomic.Int64
	env.export.artifacts.now = func() time.Time { return time.Now().Add(time.Duration(skew.Load())) }

	// the gated render never finishes, like a worker that stopped mid-task
	lost, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, lost.ID, again.ID)

	n, err := env.export.ReapStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	skew.Store(int64(2 * time.Hour))
	n, err = env.export.ReapStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reaped, err := env.export.Poll(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusFailed, reaped.Status)
	require.NotNil(t, reaped.Error)
	assert.Contains(t, *reaped.Error, "abandoned")

	next, created, err := env.export.RequestExport(ctx, fu.ID, "gated")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, lost.ID, next.ID)

	env.release()

	// the late render of the reaped job does not revive it
	reaped, err = env.export.Poll(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusFailed, reaped.Status)

	done, err := env.export.Poll(ctx, next.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusReady, done.Status)
}
