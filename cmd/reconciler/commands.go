package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/api"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/internal/scheduler"
	"github.com/vfg2006/spend-reconciler/internal/usecases/authenticating"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Executa uma reconciliação e sai",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.Close()
			ctx := cmd.Context()

			pipeline, err := a.pipeline(ctx)
			if err != nil {
				return err
			}

			report, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "execução %s: %d extraídas, %d preparadas, %d consolidadas em %s\n",
				report.ID, report.Extracted, report.Staged, report.Merged, report.Duration().Round(time.Millisecond))
			return nil
		},
	}
}

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o agendador de reconciliação e a API administrativa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.Close()
			ctx := cmd.Context()

			pipeline, err := a.pipeline(ctx)
			if err != nil {
				return err
			}

			runRepo, err := a.runRepository(ctx)
			if err != nil {
				return err
			}

			syncService := scheduler.NewReconcileSyncService(pipeline, a.cfg)
			if err := syncService.Start(ctx); err != nil {
				return errors.Wrap(err, "erro ao iniciar o agendador de reconciliação")
			}
			logrus.Info("Agendador de reconciliação iniciado com sucesso")

			server, err := api.New(a.cfg, a.target, syncService, runRepo, authenticating.NewService(a.cfg))
			if err != nil {
				return err
			}

			return server.Run(ctx)
		},
	}
}

func newSchemaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Cria as tabelas de staging, destino, execuções e diretório de fusos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.Close()
			ctx := cmd.Context()

			conn, err := a.targetConn(ctx)
			if err != nil {
				return err
			}

			tables := a.cfg.Tables
			steps := []struct {
				name   string
				ensure func() error
			}{
				{tables.Staging, func() error { return repository.NewStagingRepository(conn, tables.Staging).EnsureSchema(ctx) }},
				{tables.Target, func() error {
					return repository.NewTargetRepository(conn, tables.Target, tables.Staging).EnsureSchema(ctx)
				}},
				{tables.Runs, func() error { return repository.NewRunRepository(conn, tables.Runs).EnsureSchema(ctx) }},
				{tables.TimezoneDirectory, func() error {
					return repository.NewTimezoneDirectoryRepository(conn, tables.TimezoneDirectory).EnsureSchema(ctx)
				}},
			}

			for _, s := range steps {
				if err := s.ensure(); err != nil {
					return errors.Wrapf(err, "erro ao criar tabela %s", s.name)
				}
				logrus.WithField("table", s.name).Info("Tabela pronta")
			}

			return nil
		},
	}
}

func newDirectoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Mantém o diretório local de fusos das contas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <account> <timezone>",
		Short:   "Define o fuso IANA de uma conta",
		Example: `  reconciler directory set "Loja Centro" America/Sao_Paulo`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.Close()
			ctx := cmd.Context()

			account, timezone := args[0], args[1]
			if _, err := time.LoadLocation(timezone); err != nil {
				return errors.Wrapf(err, "fuso inválido %q", timezone)
			}

			conn, err := a.targetConn(ctx)
			if err != nil {
				return err
			}

			directory := repository.NewTimezoneDirectoryRepository(conn, a.cfg.Tables.TimezoneDirectory)
			if err := directory.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := directory.Upsert(ctx, account, timezone); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"account":  account,
				"timezone": timezone,
			}).Info("Fuso da conta atualizado")
			return nil
		},
	})

	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Emite um token da API administrativa assinado com AUTH_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := authenticating.NewService(a.cfg).IssueToken(args[0], role, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", domain.RoleOperator, "role do token: admin ou operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "validade do token")

	return cmd
}
