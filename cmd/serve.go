package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"engine-health-monitor/internal/api"
	"engine-health-monitor/internal/auth"
	"engine-health-monitor/internal/classifier"
	"engine-health-monitor/internal/config"
	"engine-health-monitor/internal/diagnostics"
	"engine-health-monitor/internal/generator"
	"engine-health-monitor/internal/metrics"
	"engine-health-monitor/internal/publish"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			m := metrics.New()
			pub, err := publish.New(publish.Config{
				Enabled: cfg.Publisher.Enabled,
				Brokers: cfg.Publisher.Brokers,
				Topic:   cfg.Publisher.Topic,
			}, slog.Default(), m)
			if err != nil {
				return fmt.Errorf("publisher: %w", err)
			}

			var cls classifier.Classifier = classifier.Disabled{}
			if cfg.Classifier.Endpoint != "" {
				cls = classifier.NewHTTPClassifier(cfg.Classifier.Endpoint, classifier.HTTPOptions{
					Timeout: cfg.Classifier.Timeout,
					Logger:  slog.Default(),
				})
			}

			verifier := auth.NewVerifier(cfg.Auth.Secret())
			if verifier == nil {
				slog.Warn("bearer token verification disabled", "jwt_secret_env", cfg.Auth.JWTSecretEnv)
			}

			seed := seedFromConfig(0)
			source := diagnostics.NewLockedSource(seed)
			gen := generator.New(seed)
			server := api.NewServer(database, api.Options{
				Engine:      diagnostics.NewEngine(nil, source),
				Generator:   gen,
				Classifier:  cls,
				Publisher:   pub,
				Metrics:     m,
				Verifier:    verifier,
				Logger:      slog.Default(),
				CORSOrigins: cfg.Server.CORSOrigins,
			})

			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      server.Handler(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			pub.Start(gctx)

			g.Go(func() error {
				slog.Info("api server listening",
					"addr", httpServer.Addr,
					"storage", cfg.Storage.Backend,
					"classifier", cfg.Classifier.Endpoint != "",
					"publisher", pub.Enabled(),
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				slog.Info("shutting down")
				err := httpServer.Shutdown(shutdownCtx)
				return errors.Join(err, pub.Stop(shutdownCtx))
			})

			if configPath != "" {
				g.Go(func() error {
					return config.Watch(gctx, configPath, cfg, func(c *config.Config) {
						levelVar.Set(c.Log.SlogLevel())
						if c.Engine.Seed != 0 {
							source.Reseed(c.Engine.Seed)
							gen.Reseed(c.Engine.Seed)
						}
						slog.Info("runtime settings applied", "level", c.Log.SlogLevel().String(), "engine_seed", c.Engine.Seed)
					})
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Server port")
	return cmd
}
