package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/export"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/outbox"
	"staybook/internal/infra/scheduler"
)

func newServeCommand(load configLoader) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox relay and the reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), load, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, load configLoader, migrate bool) error {
	cfg, logger, err := bootstrap(load)
	if err != nil {
		return err
	}
	s, err := assemble(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if migrate {
		if err := s.platform.Migrate(ctx); err != nil {
			logger.Error("migration failed", "error", err)
			return err
		}
	}
	if err := s.seedOperator(ctx); err != nil {
		return err
	}
	if cfg.ApartmentsFixtures != "" {
		if err := loadApartmentFixtures(systemContext(ctx), s.app.Commands, cfg.ApartmentsFixtures, logger); err != nil {
			logger.Warn("apartment fixtures load failed", "error", err, "path", cfg.ApartmentsFixtures)
		}
	}

	producer, closeProducer, err := newProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		return err
	}
	defer closeProducer()
	worker := &outbox.Worker{
		Store:       s.platform.relay,
		Producer:    producer,
		Wake:        s.platform.relay.Wake(),
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "staybook",
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	cron := scheduler.New(cfg.BusinessTZ, logger)
	if err := cron.Add("reminder-sweep", cfg.SweepSchedule, scheduler.ReminderSweep(s.app.Commands, logger)); err != nil {
		return err
	}

	handlers := ginserver.Handlers{
		Public:         ginserver.PublicHandler{Commands: s.app.Commands, Queries: s.app.Queries, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: s.app.Commands, Queries: s.app.Queries, Accounting: export.Workbook{}, Clock: time.Now, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: s.auth, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: s.auth, Logger: logger}.Handle,
	}
	if s.files != nil {
		handlers.Files = &ginserver.FilesHandler{Store: s.files}
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: s.platform.checks}, handlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		cron.Start()
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cron.Stop(stopCtx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func newProducer(brokers []string, logger *slog.Logger) (outbox.Producer, func(), error) {
	if len(brokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, events are logged")
		return outbox.LogProducer{Logger: logger}, func() {}, nil
	}
	p, err := kafka.NewProducer(kafka.Config{Brokers: brokers, ClientID: "staybook"})
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}
