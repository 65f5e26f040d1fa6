package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/internal/config"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/internal/usecases/reconciling"
)

//go:generate mockgen -source=reconcile_sync.go -destination=mocks/reconcile_sync_mock.go -package=mocks

// Runner executa uma reconciliação completa
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// ReconcileSyncConfig representa a configuração do agendador de reconciliação
type ReconcileSyncConfig struct {
	CronSchedule string
	SyncEnabled  bool
}

// ReconcileSyncService agenda as reconciliações e garante uma execução por vez no processo
type ReconcileSyncService struct {
	scheduler *gocron.Scheduler
	config    ReconcileSyncConfig
	runner    Runner

	baseCtx context.Context

	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastReport          *domain.RunReport
	lastError           string
}

// NewReconcileSyncService cria uma nova instância do serviço de reconciliação agendada
func NewReconcileSyncService(runner Runner, appConfig *config.Config) *ReconcileSyncService {
	syncConfig := ReconcileSyncConfig{
		CronSchedule: appConfig.ReconcileSync.CronSchedule,
		SyncEnabled:  appConfig.ReconcileSync.Enabled,
	}

	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()

	logrus.WithFields(logrus.Fields{
		"cron_schedule": syncConfig.CronSchedule,
		"sync_enabled":  syncConfig.SyncEnabled,
	}).Info("Configuração do agendador de reconciliação carregada")

	return &ReconcileSyncService{
		scheduler: scheduler,
		config:    syncConfig,
		runner:    runner,
		baseCtx:   context.Background(),
	}
}

// Start inicia o agendador
func (s *ReconcileSyncService) Start(ctx context.Context) error {
	s.baseCtx = ctx

	if !s.config.SyncEnabled {
		logrus.Info("Reconciliação agendada desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de reconciliação")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		if _, err := s.RunOnce(s.baseCtx); err != nil {
			logrus.WithError(err).Warn("Reconciliação agendada terminou com erro")
		}
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar reconciliação: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de reconciliação")
		s.scheduler.Stop()
	}()

	return nil
}

// RunOnce executa uma reconciliação de forma síncrona. Retorna
// reconciling.ErrRunInProgress se já houver uma em andamento.
func (s *ReconcileSyncService) RunOnce(ctx context.Context) (*domain.RunReport, error) {
	if !s.acquire() {
		logrus.Info("Reconciliação já em andamento, ignorando")
		return nil, reconciling.ErrRunInProgress
	}

	return s.execute(ctx)
}

// TriggerManualSync inicia uma reconciliação em segundo plano.
// Retorna false quando já existe uma execução em andamento.
func (s *ReconcileSyncService) TriggerManualSync() bool {
	if !s.acquire() {
		logrus.Info("Reconciliação já em andamento, ignorando solicitação manual")
		return false
	}

	logrus.Info("Iniciando reconciliação manual")
	go func() {
		if _, err := s.execute(s.baseCtx); err != nil {
			logrus.WithError(err).Warn("Reconciliação manual terminou com erro")
		}
	}()

	return true
}

// acquire marca a execução como iniciada; false se já houver uma em andamento
func (s *ReconcileSyncService) acquire() bool {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	if s.syncRunning {
		return false
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	return true
}

func (s *ReconcileSyncService) execute(ctx context.Context) (*domain.RunReport, error) {
	report, err := s.runner.Run(ctx)

	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	s.syncRunning = false
	s.lastSyncCompletedAt = time.Now()
	if report != nil {
		s.lastReport = report
	}
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}

	return report, err
}

// IsRunning indica se há uma reconciliação em andamento neste processo
func (s *ReconcileSyncService) IsRunning() bool {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()
	return s.syncRunning
}

// GetStatus retorna o status atual do agendador
func (s *ReconcileSyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	status := map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_running":           s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
	}

	if s.lastReport != nil {
		status["last_run"] = s.lastReport
	}
	if s.lastError != "" {
		status["last_error"] = s.lastError
	}

	return status
}
