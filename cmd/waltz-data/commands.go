package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/lib/utils"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return database.Migrate(cmd.Context(), &a.logger, a.cfg.Database.DSN())
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	var (
		enqueue     bool
		requestedBy string
	)

	cmd := &cobra.Command{
		Use:   "cleanup-orphans",
		Short: "Remove attestation instances and physical flows whose parents are gone",
		Long: `Deletes pending attestation instances of removed applications and marks
physical flows of removed logical flows or specifications as removed.

By default the cleanup runs in this process inside one transaction. With
--enqueue it is handed to the maintenance worker through Redis instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			srv, services, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = srv.Shutdown() }()

			if enqueue {
				if err := srv.SetupJobs(services.Maintenance); err != nil {
					return err
				}

				runID, err := srv.Job.EnqueueCleanup(ctx, requestedBy)
				if err != nil {
					return err
				}
				return utils.PrintJSON(cmd.OutOrStdout(), map[string]string{"runId": runID})
			}

			report, err := services.Maintenance.CleanupOrphans(ctx)
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "enqueue the cleanup for the worker instead of running it here")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "cli", "recorded with an enqueued cleanup")

	return cmd
}

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the maintenance worker and cleanup scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, services, err := a.connect(ctx)
			if err != nil {
				return err
			}

			if err := srv.SetupJobs(services.Maintenance); err != nil {
				_ = srv.Shutdown()
				return err
			}

			if err := srv.Job.Start(); err != nil {
				_ = srv.Shutdown()
				return err
			}

			<-ctx.Done()
			a.logger.Info().Msg("shutdown signal received")

			return srv.Shutdown()
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database and Redis connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, _, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = srv.Shutdown() }()

			report := srv.CheckHealth(cmd.Context())
			if err := utils.PrintJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if !report.Healthy() {
				return errors.New("unhealthy")
			}
			return nil
		},
	}
}
