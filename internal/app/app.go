package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"FeedPub/internal/config"
	"FeedPub/internal/domain"
	"FeedPub/internal/infrastructure/catalog"
	"FeedPub/internal/infrastructure/epub"
	"FeedPub/internal/infrastructure/extract"
	"FeedPub/internal/infrastructure/feedparser"
	"FeedPub/internal/infrastructure/httpfetch"
	"FeedPub/internal/infrastructure/llm"
	"FeedPub/internal/infrastructure/ml"
	"FeedPub/internal/infrastructure/scheduler"
	"FeedPub/internal/infrastructure/storage"
	"FeedPub/internal/infrastructure/telegram"
	"FeedPub/internal/logging"
	"FeedPub/internal/ports"
	"FeedPub/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	cache    ports.SummaryCache
	closers  []func() error
}

// New builds a runnable application. It claims the cache directory for the
// lifetime of the Application; call Close to release it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	cache, closeCache, err := OpenCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	a.closers = append(a.closers, closeCache)

	client, err := newSummaryClient(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var deliverer ports.Deliverer
	if cfg.Delivery.Telegram.Enabled() {
		d, err := telegram.NewDeliverer(cfg.Delivery.Telegram.BotToken, cfg.Delivery.Telegram.ChatID)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		deliverer = d
	}

	httpClient := &http.Client{Timeout: cfg.Ingest.Timeout}
	fetcher := httpfetch.NewFetcher(httpClient, cfg.Ingest.UserAgent)

	summarizer := usecase.NewSummarizer(summarizerConfig(cfg), usecase.SummarizerDeps{
		Cache:     cache,
		Fetcher:   fetcher,
		Extractor: extract.Default(),
		Client:    client,
		Logger:    baseLogger.With("component", "summarizer"),
	})

	ingestor := usecase.NewIngestor(usecase.IngestorConfig{
		MaxArticles: cfg.Ingest.MaxArticles,
		Window:      usecase.DaysToDuration(cfg.Ingest.CutoffDays),
	}, usecase.IngestorDeps{
		Fetcher:    fetcher,
		Parser:     feedparser.NewParser(),
		Summarizer: summarizer,
		Logger:     baseLogger.With("component", "ingestor"),
	})

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Catalog:  newCatalogLoader(cfg.Catalog),
		Ingestor: ingestor,
		Serializer: epub.NewWriter(epub.Options{
			Dir:      cfg.Output.Dir,
			Author:   cfg.Output.Author,
			Language: cfg.Output.Language,
		}),
		Deliverer: deliverer,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	return a, nil
}

// Run performs a single pipeline execution for today.
func (a *Application) Run(ctx context.Context) (usecase.Report, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.ProcessDay(ctx, now)
}

// Schedule runs the pipeline every scheduler.interval until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval.String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// ClearCache drops every stored summary.
func (a *Application) ClearCache(ctx context.Context) error {
	return a.cache.Clear(ctx)
}

// Close releases the cache lock and backend.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenCache locks cfg.Dir and opens the configured backend. The returned
// func closes the backend and releases the lock.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (ports.SummaryCache, func() error, error) {
	release, err := storage.AcquireLock(cfg.Dir)
	if err != nil {
		return nil, nil, err
	}

	var cache ports.SummaryCache
	switch cfg.Backend {
	case config.CacheSQLite:
		cache, err = storage.OpenSQLiteCache(ctx, cfg.Dir)
	default:
		cache, err = storage.NewFileCache(cfg.Dir)
	}
	if err != nil {
		_ = release()
		return nil, nil, err
	}

	closeFn := func() error {
		var cerr error
		if c, ok := cache.(io.Closer); ok {
			cerr = c.Close()
		}
		return errors.Join(cerr, release())
	}
	return cache, closeFn, nil
}

func newSummaryClient(cfg config.Config) (ports.SummaryClient, error) {
	switch cfg.Summarizer.Provider {
	case config.ProviderOpenAI:
		c, err := llm.NewOpenAIClient(llm.Config{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSummarizationUnavailable, err)
		}
		return c, nil
	case config.ProviderHTTP:
		return ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, nil), nil
	default:
		return nil, nil
	}
}

func summarizerConfig(cfg config.Config) usecase.SummarizerConfig {
	s := cfg.Summarizer
	return usecase.SummarizerConfig{
		MinChars:             s.MinChars,
		MaxTokens:            s.MaxTokens,
		CharsPerToken:        s.CharsPerToken,
		PromptOverheadTokens: s.PromptOverheadTokens,
		TargetChars:          s.TargetChars,
		SystemPrompt:         cfg.OpenAI.SystemPrompt,
		Throttle:             s.Throttle,
		Retry: usecase.RetryPolicy{
			MaxAttempts: s.MaxAttempts,
			Backoff:     usecase.ExponentialBackoff(s.Backoff, 30*time.Second),
		},
	}
}

func newCatalogLoader(cfg config.CatalogConfig) ports.CatalogLoader {
	if cfg.Path != "" {
		return catalog.NewOPMLLoader(cfg.Path, cfg.Title)
	}
	feeds := make([]domain.FeedDescriptor, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, domain.FeedDescriptor{
			Category:    f.Category,
			Title:       f.Title,
			Description: f.Description,
			SourceURL:   f.URL,
			HTMLURL:     f.HTMLURL,
		})
	}
	return catalog.NewStaticLoader(cfg.Title, feeds)
}
