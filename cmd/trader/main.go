package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/formula-trader/internal/clients/broker"
	"github.com/aristath/formula-trader/internal/clients/yahoo"
	"github.com/aristath/formula-trader/internal/config"
	"github.com/aristath/formula-trader/internal/database"
	"github.com/aristath/formula-trader/internal/database/repositories"
	"github.com/aristath/formula-trader/internal/lifecycle"
	"github.com/aristath/formula-trader/internal/notify"
	"github.com/aristath/formula-trader/internal/scheduler"
	"github.com/aristath/formula-trader/internal/server"
	"github.com/aristath/formula-trader/internal/services"
	"github.com/aristath/formula-trader/internal/universe"
	"github.com/aristath/formula-trader/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "trader",
		Short: "Rule-based value strategy trader",
		Long:  "Screens, ranks and trades a value stock universe on a fixed schedule.",
	}

	root.AddCommand(serveCmd(), buyCmd(), sellCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func buyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy",
		Short: "Run one buy cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce("buy")
		},
	}
}

func sellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sell",
		Short: "Run one sell cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce("sell")
		},
	}
}

// app bundles the wired components every command needs.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        *database.DB
	ledger    *repositories.Ledger
	buyCycle  *services.BuyCycleService
	sellCycle *services.SellCycleService
}

// wire loads configuration and builds the full component graph.
func wire() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ledger := repositories.NewLedger(db.Conn(), log)
	locks := repositories.NewRunLockRepository(db.Conn(), log)

	feed := universe.NewFetcher(
		yahoo.NewClient(log),
		cfg.Strategy.FetchConcurrency,
		cfg.Strategy.FetchRatePerSecond,
		log,
	)
	brokerClient := broker.NewClient(cfg.BrokerServiceURL, log)
	notifier := notify.NewWebhookNotifier(cfg.WebhookURL, log)

	buyCycle := services.NewBuyCycleService(feed, brokerClient, ledger, notifier, locks, cfg.Strategy, log)
	sellCycle := services.NewSellCycleService(feed, brokerClient, ledger, notifier, locks, lifecycle.Thresholds{
		UnprofitableDays: cfg.Strategy.UnprofitableHoldDays,
		ProfitableDays:   cfg.Strategy.ProfitableHoldDays,
	}, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		ledger:    ledger,
		buyCycle:  buyCycle,
		sellCycle: sellCycle,
	}, nil
}

func runServe() error {
	a, err := wire()
	if err != nil {
		return err
	}
	defer a.db.Close()

	log := a.log
	log.Info().Msg("Starting Formula Trader")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, log)
	if err := sched.AddJob(a.cfg.BuySchedule, scheduler.NewBuyCycleJob(a.buyCycle, log)); err != nil {
		return fmt.Errorf("failed to register buy cycle job: %w", err)
	}
	if err := sched.AddJob(a.cfg.SellSchedule, scheduler.NewSellCycleJob(a.sellCycle, log)); err != nil {
		return fmt.Errorf("failed to register sell cycle job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:      a.cfg.Port,
		Log:       log,
		Ledger:    a.ledger,
		BuyCycle:  a.buyCycle,
		SellCycle: a.sellCycle,
		DevMode:   a.cfg.DevMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Info().Int("port", a.cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}

// runOnce executes a single cycle in the foreground, for cron-less
// operation and manual reruns.
func runOnce(cycle string) error {
	a, err := wire()
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var summary services.CycleSummary
	switch cycle {
	case "buy":
		summary, err = a.buyCycle.Run(ctx)
	case "sell":
		summary, err = a.sellCycle.Run(ctx)
	default:
		return fmt.Errorf("unknown cycle %q", cycle)
	}
	if err != nil {
		return err
	}

	a.log.Info().Str("summary", summary.String()).Msg("Cycle finished")
	return nil
}
