// Package app assembles the link checking pipeline from configuration. It is shared by
// the HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dandantas/linkpatrol/internal/checker"
	"github.com/dandantas/linkpatrol/internal/config"
	"github.com/dandantas/linkpatrol/internal/content"
	"github.com/dandantas/linkpatrol/internal/database"
	"github.com/dandantas/linkpatrol/internal/extractor"
	"github.com/dandantas/linkpatrol/internal/handler"
	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/dandantas/linkpatrol/internal/notifier"
	"github.com/dandantas/linkpatrol/internal/prober"
	"github.com/dandantas/linkpatrol/internal/retry"
	"github.com/dandantas/linkpatrol/internal/scheduler"
	"github.com/dandantas/linkpatrol/internal/webhook"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	DB       *database.MongoDB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Prober    *prober.Prober
	Engine    *checker.Engine
	Notifier  *notifier.Notifier
	Scheduler *scheduler.Scheduler

	Checks *database.CheckRepository
	Locks  *database.LockRepository
}

// New connects to MongoDB, ensures indexes and builds every component
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		return nil, err
	}
	if err := database.CreateIndexes(ctx, db); err != nil {
		_ = db.Disconnect(context.Background())
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Registry: registry,
		Metrics:  m,
		Checks:   database.NewCheckRepository(db),
		Locks:    database.NewLockRepository(db),
	}

	if err := a.build(); err != nil {
		_ = db.Disconnect(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg := a.Config

	a.Prober = NewProber(cfg)

	ext, err := extractor.New(cfg.SiteBaseURL)
	if err != nil {
		return fmt.Errorf("SITE_BASE_URL: %w", err)
	}

	a.Engine = checker.NewEngine(ext, a.Prober, checker.Options{
		Concurrency:  cfg.CheckerConcurrency,
		ProbeTimeout: cfg.CheckerProbeTimeout,
		RunDeadline:  cfg.CheckerRunDeadline,
		Retry:        retry.Config{MaxAttempts: cfg.CheckerMaxAttempts},
	}, a.Metrics)

	source, err := content.NewHTTPSource(content.Options{
		URL:       cfg.ContentAPIURL,
		Token:     cfg.ContentAPIToken,
		ItemsPath: cfg.ContentItemsPath,
		IDPath:    cfg.ContentIDPath,
		TitlePath: cfg.ContentTitlePath,
		BodyPath:  cfg.ContentBodyPath,
		PageSize:  cfg.ContentPageSize,
	}, nil)
	if err != nil {
		return err
	}

	a.Notifier = NewNotifier(cfg, database.NewDeliveryRepository(a.DB), a.Metrics)

	a.Scheduler = scheduler.NewScheduler(
		database.NewScheduleRepository(a.DB, cfg.Schedule()),
		a.Checks,
		source,
		a.Engine,
		a.Notifier,
		scheduler.WithMetrics(a.Metrics),
		scheduler.WithNotifyTimeout(cfg.NotifyTimeout),
	)

	slog.Info("Link check pipeline ready",
		"frequency", cfg.LinkCheckFrequency,
		"enabled", cfg.LinkCheckEnabled,
		"channels", a.Notifier.Enabled(),
		"concurrency", cfg.CheckerConcurrency,
	)
	return nil
}

// NewProber builds a prober with per-host rate limiting from cfg
func NewProber(cfg *config.Config) *prober.Prober {
	opts := []prober.Option{
		prober.WithClient(prober.NewHTTPClient(cfg.CheckerProbeTimeout)),
		prober.WithHostLimiter(prober.NewHostLimiter(cfg.CheckerPerHostRPS, 1)),
	}
	if cfg.CheckerUserAgent != "" {
		opts = append(opts, prober.WithUserAgent(cfg.CheckerUserAgent))
	}
	return prober.New(opts...)
}

// NewNotifier builds the notifier for the enabled channels. recorder may be nil.
func NewNotifier(cfg *config.Config, recorder notifier.DeliveryRecorder, m *metrics.Metrics) *notifier.Notifier {
	opts := []notifier.Option{
		notifier.WithMetrics(m),
		notifier.WithPreviewLimit(cfg.NotifyPreviewLimit),
	}
	if recorder != nil {
		opts = append(opts, notifier.WithRecorder(recorder))
	}
	if cfg.EmailEnabled {
		opts = append(opts, notifier.WithEmailSender(notifier.NewSMTPSender(notifier.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})))
	}
	if cfg.WebhookEnabled {
		opts = append(opts, notifier.WithWebhookSender(webhook.NewDispatcher(webhook.Options{
			Timeout:      cfg.WebhookTimeout,
			PreviewLimit: cfg.NotifyPreviewLimit,
		})))
	}

	return notifier.New(notifier.Channels{
		Email:   notifier.EmailChannel{Enabled: cfg.EmailEnabled, To: cfg.EmailTo},
		Webhook: notifier.WebhookChannel{Enabled: cfg.WebhookEnabled, URL: cfg.WebhookURL},
	}, opts...)
}

// Router builds the HTTP surface
func (a *App) Router(version string) *handler.Router {
	cfg := a.Config

	health := handler.NewHealthHandler(a.DB, Capabilities(cfg, a.Notifier.Enabled()), version)

	return handler.NewRouter(
		handler.NewTriggerHandler(a.Scheduler, a.Locks, cfg.TriggerLockTTL),
		handler.NewHistoryHandler(a.Checks),
		health,
		a.Registry,
		cfg.CronSecret,
	)
}

// Capabilities summarizes cfg for the health endpoint
func Capabilities(cfg *config.Config, channels []string) handler.Capabilities {
	schedule := cfg.Schedule()
	return handler.Capabilities{
		Schedule: handler.ScheduleInfo{
			Enabled:     schedule.Enabled,
			Frequency:   string(schedule.Frequency),
			TimeOfDay:   schedule.TimeOfDay,
			DayOfWeek:   schedule.DayOfWeek,
			PostsPerRun: schedule.PostsToCheckPerRun,
			Timezone:    schedule.Timezone,
		},
		Checker: handler.CheckerInfo{
			Concurrency:     cfg.CheckerConcurrency,
			ProbeTimeoutSec: int(cfg.CheckerProbeTimeout.Seconds()),
			RunDeadlineSec:  int(cfg.CheckerRunDeadline.Seconds()),
			MaxAttempts:     cfg.CheckerMaxAttempts,
			PerHostRPS:      cfg.CheckerPerHostRPS,
		},
		Channels: channels,
		Trigger:  "/api/v1/cron/link-check",
	}
}

// Close releases the database connection
func (a *App) Close(ctx context.Context) error {
	return a.DB.Disconnect(ctx)
}

var (
	_ handler.Invoker           = (*scheduler.Scheduler)(nil)
	_ handler.Locker            = (*database.LockRepository)(nil)
	_ handler.CheckStore        = (*database.CheckRepository)(nil)
	_ scheduler.Notifier        = (*notifier.Notifier)(nil)
	_ scheduler.Checker         = (*checker.Engine)(nil)
	_ notifier.WebhookSender    = (*webhook.Dispatcher)(nil)
	_ notifier.EmailSender      = (*notifier.SMTPSender)(nil)
	_ notifier.DeliveryRecorder = (*database.DeliveryRepository)(nil)
)
