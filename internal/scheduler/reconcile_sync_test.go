package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/internal/config"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/internal/scheduler/mocks"
	"github.com/vfg2006/spend-reconciler/internal/usecases/reconciling"
	"go.uber.org/mock/gomock"
)

func newTestService(runner Runner, enabled bool) *ReconcileSyncService {
	cfg := &config.Config{
		ReconcileSync: config.ReconcileSync{
			CronSchedule: "0 * * * *",
			Enabled:      enabled,
		},
	}
	return NewReconcileSyncService(runner, cfg)
}

func TestReconcileSyncService_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("registra o relatório da última execução", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockRunner(ctrl)

		report := &domain.RunReport{ID: "abc123", State: domain.RunStateDone, Merged: 3}
		runner.EXPECT().Run(gomock.Any()).Return(report, nil)

		service := newTestService(runner, false)

		got, err := service.RunOnce(ctx)
		require.NoError(t, err)
		assert.Same(t, report, got)

		status := service.GetStatus()
		assert.Equal(t, report, status["last_run"])
		assert.Equal(t, false, status["sync_running"])
		assert.NotContains(t, status, "last_error")
	})

	t.Run("erro da execução aparece no status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockRunner(ctrl)

		runner.EXPECT().Run(gomock.Any()).Return(&domain.RunReport{State: domain.RunStateMerge}, errors.New("merge falhou"))

		service := newTestService(runner, false)

		_, err := service.RunOnce(ctx)
		assert.EqualError(t, err, "merge falhou")
		assert.Equal(t, "merge falhou", service.GetStatus()["last_error"])
	})

	t.Run("segunda chamada durante uma execução é recusada", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockRunner(ctrl)

		started := make(chan struct{})
		release := make(chan struct{})

		runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) (*domain.RunReport, error) {
			close(started)
			<-release
			return &domain.RunReport{State: domain.RunStateDone}, nil
		}).Times(1)

		service := newTestService(runner, false)

		done := make(chan error, 1)
		go func() {
			_, err := service.RunOnce(ctx)
			done <- err
		}()

		<-started
		assert.True(t, service.IsRunning())

		_, err := service.RunOnce(ctx)
		assert.ErrorIs(t, err, reconciling.ErrRunInProgress)
		assert.False(t, service.TriggerManualSync())

		close(release)
		require.NoError(t, <-done)
		assert.False(t, service.IsRunning())
	})
}

func TestReconcileSyncService_TriggerManualSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	finished := make(chan struct{})
	runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) (*domain.RunReport, error) {
		defer close(finished)
		return &domain.RunReport{State: domain.RunStateDone}, nil
	})

	service := newTestService(runner, false)

	assert.True(t, service.TriggerManualSync())

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciliação manual não foi executada")
	}
}

func TestReconcileSyncService_TriggerManualSyncConcurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	release := make(chan struct{})
	finished := make(chan struct{})
	runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) (*domain.RunReport, error) {
		defer close(finished)
		<-release
		return &domain.RunReport{State: domain.RunStateDone}, nil
	}).Times(1)

	service := newTestService(runner, false)

	const callers = 20
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if service.TriggerManualSync() {
				accepted.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.True(t, service.IsRunning())

	_, err := service.RunOnce(context.Background())
	assert.ErrorIs(t, err, reconciling.ErrRunInProgress)

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciliação manual não terminou")
	}
	assert.Eventually(t, func() bool { return !service.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.NotContains(t, service.GetStatus(), "last_error")
}

func TestReconcileSyncService_Start(t *testing.T) {
	t.Run("desabilitado não agenda nada", func(t *testing.T) {
		service := newTestService(nil, false)

		require.NoError(t, service.Start(context.Background()))
		assert.Empty(t, service.scheduler.Jobs())
	})

	t.Run("habilitado agenda o job e para com o contexto", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := newTestService(mocks.NewMockRunner(ctrl), true)

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, service.Start(ctx))
		assert.Len(t, service.scheduler.Jobs(), 1)
		assert.True(t, service.scheduler.IsRunning())

		cancel()
		assert.Eventually(t, func() bool { return !service.scheduler.IsRunning() }, time.Second, 10*time.Millisecond)
	})

	t.Run("cron inválido", func(t *testing.T) {
		service := newTestService(nil, true)
		service.config.CronSchedule = "todo dia"

		assert.Error(t, service.Start(context.Background()))
	})
}
