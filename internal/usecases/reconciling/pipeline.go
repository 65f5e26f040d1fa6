package reconciling

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/config"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/pkg/retry"
	"github.com/vfg2006/spend-reconciler/pkg/utils"
)

// Chave do lock que garante uma única execução ativa por banco de destino
const runLockKey int64 = 0x5350454e44

const defaultPageSize = 1000

// RunLocker serializa execuções; o release devolvido libera o lock
type RunLocker interface {
	TryLock(ctx context.Context, key int64) (func(), bool, error)
}

type Dependencies struct {
	Locker    RunLocker
	Staging   repository.StagingRepository
	Target    repository.TargetRepository
	Runs      repository.RunRepository
	Source    repository.SpendSource
	Directory TimezoneDirectory
}

type Options struct {
	Canonical       *time.Location
	BatchSize       int
	PageSize        int
	SeedSentinelRow bool
	Retry           retry.Policy
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	canonical, err := time.LoadLocation(cfg.Pipeline.CanonicalTimezone)
	if err != nil {
		return Options{}, errors.Wrapf(err, "fuso canônico %q", cfg.Pipeline.CanonicalTimezone)
	}

	return Options{
		Canonical:       canonical,
		BatchSize:       cfg.Pipeline.BatchSize,
		PageSize:        cfg.Source.PageSize,
		SeedSentinelRow: cfg.Pipeline.SeedSentinelRow,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			CallTimeout: cfg.Retry.CallTimeout,
		},
	}, nil
}

// Pipeline executa uma reconciliação completa:
// INIT -> ENSURE_SCHEMA -> SEED_IF_EMPTY -> EXTRACT_NORMALIZE -> LOAD -> MERGE -> EMPTY_STAGING -> DONE
type Pipeline struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

func NewPipeline(deps Dependencies, opts Options) *Pipeline {
	if opts.Canonical == nil {
		opts.Canonical = time.UTC
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	return &Pipeline{
		deps: deps,
		opts: opts,
		now:  time.Now,
	}
}

// Estado de uma única execução; nada aqui é compartilhado entre execuções
type runState struct {
	report     *domain.RunReport
	logger     *logrus.Entry
	resolver   *Resolver
	normalizer *Normalizer
	acc        *Accumulator
}

type step struct {
	state domain.RunState
	kind  error
	run   func(ctx context.Context, r *runState) error
}

// Run executa a reconciliação e devolve o relatório da execução. Uma falha
// interrompe a execução no estado em que ocorreu; rodar de novo é a forma de
// recuperação, já que extração e merge são idempotentes.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	runID, err := utils.GenerateID()
	if err != nil {
		return nil, errors.Wrap(err, "erro ao gerar id da execução")
	}

	logger := logrus.WithField("run_id", runID)

	release, acquired, err := p.deps.Locker.TryLock(ctx, runLockKey)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao obter lock da execução")
	}
	if !acquired {
		logger.Warn("Outra reconciliação está em andamento, execução ignorada")
		return nil, ErrRunInProgress
	}
	defer release()

	r := &runState{
		report:     domain.NewRunReport(runID, p.now()),
		logger:     logger,
		resolver:   NewResolver(p.deps.Directory, p.opts.Retry),
		normalizer: NewNormalizer(p.opts.Canonical),
	}
	r.acc = NewAccumulator(p.opts.BatchSize, func(ctx context.Context, batch []domain.NormalizedRecord) error {
		return p.appendBatch(ctx, r, batch)
	})

	logger.WithField("started_at", r.report.StartedAt.Format(time.RFC3339)).Info("Iniciando reconciliação de gastos horários")

	runErr := p.execute(ctx, r)

	r.report.FinishedAt = p.now()
	if runErr != nil {
		r.report.Error = runErr.Error()
		logger.WithError(runErr).WithField("state", r.report.State).Error("Reconciliação interrompida")
	} else {
		r.report.State = domain.RunStateDone
	}

	if err := p.deps.Runs.Save(context.WithoutCancel(ctx), r.report); err != nil {
		logger.WithError(err).Warn("Não foi possível registrar a execução")
	}

	logger.WithFields(logrus.Fields{
		"state":          r.report.State,
		"finished_at":    r.report.FinishedAt.Format(time.RFC3339),
		"elapsed":        r.report.Duration().String(),
		"extracted":      r.report.Extracted,
		"fallback":       r.report.Fallback,
		"skipped":        r.report.Skipped,
		"staged":         r.report.Staged,
		"failed_batches": r.report.FailedBatches,
		"row_errors":     r.report.RowErrors,
		"merged":         r.report.Merged,
	}).Info("Reconciliação finalizada")

	return r.report, runErr
}

func (p *Pipeline) execute(ctx context.Context, r *runState) error {
	steps := []step{
		{domain.RunStateEnsureSchema, ErrSchema, p.ensureSchema},
		{domain.RunStateSeedIfEmpty, ErrSeed, p.seedIfEmpty},
		{domain.RunStateExtractNormalize, ErrExtract, p.extractAndNormalize},
		{domain.RunStateLoad, ErrLoad, p.loadRemainder},
		{domain.RunStateMerge, ErrMerge, p.merge},
		{domain.RunStateEmptyStaging, ErrTruncate, p.emptyStaging},
	}

	for _, s := range steps {
		r.report.State = s.state
		r.logger.WithField("state", s.state).Debug("Entrando no estado")

		if err := s.run(ctx, r); err != nil {
			return NewStepError(s.state, s.kind, err)
		}
	}

	return nil
}

func (p *Pipeline) ensureSchema(ctx context.Context, r *runState) error {
	if err := p.deps.Staging.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "staging")
	}
	if err := p.deps.Target.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "destino")
	}
	if err := p.deps.Runs.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "histórico de execuções")
	}
	return nil
}

func (p *Pipeline) seedIfEmpty(ctx context.Context, r *runState) error {
	if !p.opts.SeedSentinelRow {
		r.logger.Debug("Linha sentinela desativada, staging não será semeada")
		return nil
	}

	seeded, err := p.deps.Staging.AppendSentinelIfEmpty(ctx, p.opts.Canonical)
	if err != nil {
		return err
	}

	if seeded {
		r.logger.Info("Staging semeada com a linha sentinela")
	}
	return nil
}

// extractAndNormalize percorre as páginas pendentes da fonte. Os lotes
// completos são gravados na staging durante a leitura.
func (p *Pipeline) extractAndNormalize(ctx context.Context, r *runState) error {
	offset := 0

	for {
		var page []domain.SourceRecord
		err := retry.Do(ctx, p.opts.Retry, "spend_source", func(ctx context.Context) error {
			var err error
			page, err = p.deps.Source.FetchPending(ctx, offset, p.opts.PageSize)
			return err
		})
		if err != nil {
			return errors.Wrapf(err, "página com offset %d", offset)
		}

		r.report.Extracted += len(page)
		r.logger.WithFields(logrus.Fields{"offset": offset, "rows": len(page)}).Debug("Página extraída")

		r.resolver.Warm(ctx, accountNames(page))

		for _, rec := range page {
			tz, resolved := r.resolver.Resolve(ctx, rec.AccountName)

			normalized, err := r.normalizer.Normalize(rec, tz, resolved)
			if err != nil {
				r.report.Skipped++
				r.logger.WithError(err).WithFields(logrus.Fields{
					"account_id": rec.AccountID,
					"date_start": rec.DateStart.Format(domain.DateLayout),
					"window":     rec.HourlyWindow,
				}).Warn("Registro descartado")
				continue
			}

			if !resolved {
				r.report.Fallback++
			}
			r.report.Normalized++

			if err := r.acc.Add(ctx, normalized); err != nil {
				return err
			}
		}

		if len(page) < p.opts.PageSize {
			return nil
		}
		offset += len(page)
	}
}

func (p *Pipeline) loadRemainder(ctx context.Context, r *runState) error {
	err := r.acc.FlushRemainder(ctx)
	r.report.Batches = r.acc.Batches()
	return err
}

// appendBatch grava um lote com retentativas. Um lote que esgota as
// tentativas é registrado e descartado; suas linhas voltam na próxima
// execução pelo anti-join. Só o cancelamento do contexto interrompe a carga.
func (p *Pipeline) appendBatch(ctx context.Context, r *runState, batch []domain.NormalizedRecord) error {
	var rowErrors []repository.RowError

	err := retry.Do(ctx, p.opts.Retry, "staging_append", func(ctx context.Context) error {
		var err error
		rowErrors, err = p.deps.Staging.Append(ctx, batch)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.report.FailedBatches++
		r.logger.WithError(err).WithField("batch_size", len(batch)).Error("Falha ao gravar lote na staging, lote ignorado")
		return nil
	}

	for _, rowErr := range rowErrors {
		r.logger.WithError(rowErr.Err).WithFields(logrus.Fields{
			"index":      rowErr.Index,
			"account_id": rowErr.Key.AccountID,
			"date_start": rowErr.Key.DateStart,
			"hour":       rowErr.Key.Hour,
		}).Error("Linha recusada pela staging")
	}

	r.report.RowErrors += len(rowErrors)
	r.report.Staged += len(batch) - len(rowErrors)

	r.logger.WithFields(logrus.Fields{
		"batch_size": len(batch),
		"row_errors": len(rowErrors),
	}).Info("Lote gravado na staging")

	return nil
}

func (p *Pipeline) merge(ctx context.Context, r *runState) error {
	var merged int64

	err := retry.Do(ctx, p.opts.Retry, "merge", func(ctx context.Context) error {
		var err error
		merged, err = p.deps.Target.MergeFromStaging(ctx)
		return err
	})
	if err != nil {
		return err
	}

	r.report.Merged = merged
	r.logger.WithField("merged", merged).Info("Merge da staging no destino concluído")
	return nil
}

func (p *Pipeline) emptyStaging(ctx context.Context, r *runState) error {
	return retry.Do(ctx, p.opts.Retry, "truncate_staging", func(ctx context.Context) error {
		return p.deps.Staging.Truncate(ctx)
	})
}

func accountNames(page []domain.SourceRecord) []string {
	names := make([]string, 0, len(page))
	for _, rec := range page {
		names = append(names, rec.AccountName)
	}
	return names
}
