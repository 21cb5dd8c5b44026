package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ogulcanaydogan/campaign-refresh/internal/config"
	"github.com/ogulcanaydogan/campaign-refresh/internal/server"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/alerts"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/refresh"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/schedule"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/snapshot"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/source"
	"github.com/ogulcanaydogan/campaign-refresh/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile   string
	immediate bool
)

var rootCmd = &cobra.Command{
	Use:   "refresher",
	Short: "Campaign data refresh - scheduled extraction, KPIs and alerts",
	Long: `Refresher pulls campaign and budget data from the marketing database,
derives KPIs, evaluates performance alerts and emails them to the marketing team.
Without flags it runs on the configured schedule until interrupted.`,
	SilenceUsage: true,
	RunE:         runRefresher,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config/database_config.json)")
	rootCmd.Flags().BoolVar(&immediate, "immediate", false, "Run one refresh now and exit")
}

// setup loads the configuration and creates the logger. A broken config file
// is logged and the defaults are used instead.
func setup() (*config.Config, *slog.Logger, io.Closer) {
	cfg, err := config.Load(cfgFile)
	logger, closer := newLogger(cfg)
	logConfig(logger, cfg, err)
	return cfg, logger, closer
}

func logConfig(logger *slog.Logger, cfg *config.Config, loadErr error) {
	switch {
	case loadErr != nil:
		logger.Warn("invalid configuration, using defaults", "file", cfgFile, "error", loadErr)
	case cfg.File != "":
		logger.Info("configuration loaded", "file", cfg.File)
	default:
		logger.Info("no config file found, using defaults")
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger creates a structured logger writing to stderr and, when
// logging.file is set, to a rotating file in the log directory.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if cfg.Logging.File != "" {
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Paths.LogDir, cfg.Logging.File),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		out = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Logging.Level)}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSnapshots returns the artifact store. Status reports go to the log directory.
func newSnapshots(cfg *config.Config) *snapshot.Store {
	return snapshot.NewStore(cfg.Paths.DataDir, snapshot.WithStatusDir(cfg.Paths.LogDir))
}

// connector opens a gateway per run.
func connector(cfg *config.Config) refresh.Connector {
	src := cfg.Database.Source()
	return func(ctx context.Context) (refresh.Source, error) {
		g, err := source.Open(ctx, src)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if len(cfg.Email.Recipients) > 0 {
		notifiers = append(notifiers, alerts.NewEmailNotifier(
			alerts.NewSMTPMailer(cfg.Email.SMTP()),
			cfg.Email.Sender(),
			cfg.Email.Recipients,
		))
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initRules loads the alert rules file, or the built-in rules when none is set.
func initRules(cfg *config.Config) (alerts.Rules, error) {
	if cfg.Alerts.RulesFile == "" {
		return alerts.DefaultRules(), nil
	}
	rules, err := alerts.LoadRules(cfg.Alerts.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load alert rules: %w", err)
	}
	return rules, nil
}

// initStorage opens the run history and drops runs past the retention window.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.SQLite, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if cfg.Storage.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Storage.RetentionDays)
		n, err := store.PruneBefore(ctx, cutoff)
		if err != nil {
			logger.Warn("prune run history failed", "error", err)
		} else if n > 0 {
			logger.Info("pruned run history", "runs", n, "before", cutoff.Format(time.DateOnly))
		}
	}

	return store, nil
}

// initOrchestrator creates a fully wired refresh orchestrator.
func initOrchestrator(cfg *config.Config, history storage.History, reg prometheus.Registerer, logger *slog.Logger) (*refresh.Orchestrator, error) {
	rules, err := initRules(cfg)
	if err != nil {
		return nil, err
	}

	return refresh.New(
		connector(cfg),
		newSnapshots(cfg),
		logger,
		refresh.WithNotifier(alerts.NewDispatcher(initNotifiers(cfg), logger)),
		refresh.WithHistory(history),
		refresh.WithRules(rules),
		refresh.WithMetrics(refresh.NewMetrics(reg)),
		refresh.WithLookback(cfg.Lookback.CampaignMonths, cfg.Lookback.BudgetYears),
	), nil
}

func runRefresher(cmd *cobra.Command, _ []string) error {
	cfg, logger, logFile := setup()
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orch, err := initOrchestrator(cfg, store, reg, logger)
	if err != nil {
		return err
	}

	if immediate {
		if orch.RunFullRefresh(ctx) {
			fmt.Println("Data refresh completed successfully")
			return nil
		}
		fmt.Println("Data refresh completed with errors - check logs")
		store.Close()
		logFile.Close()
		os.Exit(1)
	}

	sched, err := schedule.New(cfg.RefreshSchedule.Schedule(), orch, logger)
	if err != nil {
		return fmt.Errorf("configure schedule: %w", err)
	}

	srvErr := make(chan error, 1)
	var srv *http.Server
	if cfg.Server.Listen != "" {
		srv = &http.Server{
			Addr:         cfg.Server.Listen,
			Handler:      server.NewServer(store, reg, logger).Handler(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			logger.Info("status API started", "listen", cfg.Server.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	var runErr error
	select {
	case err := <-srvErr:
		logger.Error("status API failed", "error", err)
		stop()
		<-schedDone
		runErr = fmt.Errorf("status API: %w", err)
	case runErr = <-schedDone:
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status API shutdown", "error", err)
		}
	}
	return runErr
}
