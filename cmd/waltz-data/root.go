package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ro-rah/waltz/internal/config"
	"github.com/ro-rah/waltz/internal/logger"
	"github.com/ro-rah/waltz/internal/repository"
	"github.com/ro-rah/waltz/internal/server"
	"github.com/ro-rah/waltz/internal/service"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg           *config.Config
	logger        zerolog.Logger
	loggerService *logger.LoggerService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "waltz-data",
		Short:         "Operational commands for the Waltz data layer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.loggerService.Shutdown()
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newCleanupCmd(a),
		newWorkerCmd(a),
		newHealthCmd(a),
	)

	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.loggerService = loggerService
	a.logger = logger.NewLoggerWithService(cfg.Observability, loggerService)

	return nil
}

// connect builds the server container and the services over its pool.
func (a *app) connect(ctx context.Context) (*server.Server, *service.Services, error) {
	srv, err := server.New(ctx, a.cfg, &a.logger, a.loggerService)
	if err != nil {
		return nil, nil, fmt.Errorf("starting server: %w", err)
	}

	repos := repository.NewRepositories(srv.DB.Pool, srv.Logger)
	return srv, service.NewServices(srv.DB.Pool, repos, srv.Logger), nil
}
