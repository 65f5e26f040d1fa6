package main

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/infrastructure/database/clickhouse"
	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/config"
	"github.com/vfg2006/spend-reconciler/internal/usecases/reconciling"
)

// app guarda a configuração e as conexões abertas por um comando
type app struct {
	cfg    *config.Config
	target *database.Connection
	source driver.Conn
}

// targetConn abre a conexão com o banco de destino uma única vez
func (a *app) targetConn(ctx context.Context) (*database.Connection, error) {
	if a.target != nil {
		return a.target, nil
	}

	conn, err := database.NewConnection(ctx, a.cfg.Database)
	if err != nil {
		return nil, errors.Wrapf(err, "erro ao conectar ao banco de destino (%s)", a.cfg.Database.Driver)
	}

	logrus.WithField("driver", a.cfg.Database.Driver).Info("Conexão com o banco de destino estabelecida com sucesso")
	a.target = conn
	return conn, nil
}

func (a *app) spendSource(ctx context.Context, conn *database.Connection) (repository.SpendSource, error) {
	switch a.cfg.Source.Driver {
	case config.SourceClickHouse:
		chConn, err := clickhouse.NewConnection(ctx, a.cfg.ClickHouse)
		if err != nil {
			return nil, err
		}
		a.source = chConn
		logrus.WithField("host", a.cfg.ClickHouse.Host).Info("Conexão com o ClickHouse estabelecida com sucesso")
		return repository.NewClickHouseSpendSource(chConn, a.cfg.Source.Table, a.cfg.ClickHouse.TargetMirror), nil
	default:
		return repository.NewSQLSpendSource(conn, a.cfg.Source.Table, a.cfg.Tables.Target), nil
	}
}

func (a *app) runRepository(ctx context.Context) (repository.RunRepository, error) {
	conn, err := a.targetConn(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewRunRepository(conn, a.cfg.Tables.Runs), nil
}

func (a *app) pipeline(ctx context.Context) (*reconciling.Pipeline, error) {
	conn, err := a.targetConn(ctx)
	if err != nil {
		return nil, err
	}

	source, err := a.spendSource(ctx, conn)
	if err != nil {
		return nil, err
	}

	opts, err := reconciling.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}

	tables := a.cfg.Tables
	deps := reconciling.Dependencies{
		Locker:    conn,
		Staging:   repository.NewStagingRepository(conn, tables.Staging),
		Target:    repository.NewTargetRepository(conn, tables.Target, tables.Staging),
		Runs:      repository.NewRunRepository(conn, tables.Runs),
		Source:    source,
		Directory: repository.NewTimezoneDirectoryRepository(conn, tables.TimezoneDirectory),
	}

	return reconciling.NewPipeline(deps, opts), nil
}

func (a *app) Close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			logrus.WithError(err).Warn("Erro ao fechar conexão com o ClickHouse")
		}
		a.source = nil
	}
	if a.target != nil {
		if err := a.target.Close(); err != nil {
			logrus.WithError(err).Warn("Erro ao fechar conexão com o banco de destino")
		}
		a.target = nil
	}
}
