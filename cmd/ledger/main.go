package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/alerts"
	"ledger/internal/budget"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger("info", log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(logger.WithComponent(log.ComponentLedger).Slog()),
	}
	if result.Publisher != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(result.Publisher))
	}
	ledgerSvc := ledger.NewService(result.Store, ledgerOpts...)
	incomeSvc := ledger.NewService(result.Store.Incomes(),
		append(ledgerOpts, ledger.WithKind(core.KindIncome))...)
	budgetMgr := budget.NewManager(result.Store, result.Store,
		budget.WithLogger(logger.WithComponent(log.ComponentBudget).Slog()))
	alertSvc := alerts.NewService(result.Store, budgetMgr, nil,
		logger.WithComponent(log.ComponentAlerts).Slog())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:  ledgerSvc,
		Incomes: incomeSvc,
		Budget:  budgetMgr,
		Alerts:  alertSvc,
	}, logger.WithComponent(log.ComponentHTTP))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}
