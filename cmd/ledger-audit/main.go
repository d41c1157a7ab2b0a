package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger("info", log.ComponentAudit)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentAudit)

	if !cfg.EventsEnabled() {
		logger.Error("LEDGER_AMQP_URL is required for the audit consumer")
		os.Exit(1)
	}

	if err := run(logger, cfg); err != nil {
		logger.Error("Audit consumer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Audit consumer stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
	}()

	auditor := worker.NewAuditWorker(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting audit consumer",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		err := client.ConsumeLedgerEvents(gctx, auditor.Handler(gctx))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	processed, rejected := auditor.Stats()
	logger.Info("Audit totals", "processed", processed, "rejected", rejected)
	return err
}
