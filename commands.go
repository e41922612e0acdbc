package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"autopay/config"
	"autopay/controllers"
	"autopay/database"
	"autopay/middleware"
	"autopay/services"
	"autopay/utils"
	"github.com/spf13/cobra"
)

func serveCmd(configFile *string) *cobra.Command {
	var (
		withMigrations bool
		noScheduler    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger API and the daily scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if withMigrations {
				if _, err := database.RunMigrations(a.cfg.DB.URL, a.cfg.DB.MigrationsPath); err != nil {
					return err
				}
			}

			// Запускаем планировщик платежей
			if !noScheduler {
				scheduler, err := services.NewPaymentSchedulerService(a.batch, a.cfg.Autopay.Cron, a.cfg.Location(), a.log)
				if err != nil {
					return err
				}
				if err := scheduler.Start(); err != nil {
					return err
				}
				defer func() { <-scheduler.Stop().Done() }()
			}

			controller := controllers.NewAutopayController(a.batch, a.db, a.metrics, a.log)
			limiter := utils.NewRateLimiter(60, time.Minute)
			server := newServer(a.cfg.Server.Port, newRouter(controller, []byte(a.cfg.DB.ServiceKey), limiter, a.log, a.metrics))

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", server.Addr).Info("server started")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&withMigrations, "migrate", false, "apply database migrations before starting")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the trigger API only, without the daily schedule")
	return cmd
}

func runCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process due autopays once and print the run statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, runErr := a.batch.Run(cmd.Context())
			if stats != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(stats); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(*configFile)
			if err != nil {
				return err
			}
			log := utils.NewLogger(cfg.LogLevel)

			start := time.Now()
			version, err := database.RunMigrations(cfg.DB.URL, cfg.DB.MigrationsPath)
			utils.LogOperation(log.WithField("schema_version", version), "migrate", start, err)
			return err
		},
	}
}

func tokenCmd(configFile *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a service token for the trigger API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(*configFile)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Autopay.TokenTTL
			}

			token, err := middleware.IssueServiceToken([]byte(cfg.DB.ServiceKey), subject, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "scheduler", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to AUTOPAY_TOKEN_TTL)")
	return cmd
}
