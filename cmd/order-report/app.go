package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/order-report/pkg/auth"
	"github.com/Sternrassler/order-report/pkg/client"
	"github.com/Sternrassler/order-report/pkg/config"
	"github.com/Sternrassler/order-report/pkg/credential"
	"github.com/Sternrassler/order-report/pkg/ratelimit"
	"github.com/Sternrassler/order-report/pkg/report"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultTitle = "Order Report"

func execute(ctx context.Context, settings *config.Settings, opts *options, logger zerolog.Logger) (*report.Document, error) {
	cfg, err := loadReport(settings, opts)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	httpClient := &http.Client{Timeout: settings.HTTPTimeout}

	provider, err := auth.New(auth.Config{
		BaseURL:      settings.OrderAPIBaseURL,
		ClientID:     settings.APIClientID,
		ClientSecret: settings.APIClientSecret,
		Store:        store,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create token provider: %w", err)
	}

	clientCfg := client.DefaultConfig(settings.OrderAPIBaseURL, provider)
	clientCfg.HTTPClient = httpClient
	clientCfg.PageSize = settings.PageSize
	clientCfg.RateLimit = ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond, Burst: 1}

	orders, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create order client: %w", err)
	}

	logger.Info().
		Str("report_id", cfg.ID()).
		Str("from", opts.from.Format(dateLayout)).
		Str("to", opts.to.Format(dateLayout)).
		Str("credential_store", settings.CredentialStore).
		Msg("Running report")

	rs, err := orders.Query(ctx, opts.from, opts.to, cfg)
	if err != nil {
		return nil, err
	}

	renderOpts := report.DefaultOptions()
	renderOpts.OutputDir = settings.ReportOutputDir
	renderer := report.NewRenderer(renderOpts)

	doc, err := renderer.Render(reportTitle(cfg, opts), rs, cfg, time.Now())
	if err != nil {
		return nil, err
	}

	if opts.verify {
		pages, err := report.Verify(doc.Path)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", doc.Path).Int("pages", pages).Msg("PDF verified")
	}

	logger.Info().
		Str("report_id", cfg.ID()).
		Str("path", doc.Path).
		Int("records", doc.Records).
		Int("pages", doc.Pages).
		Msg("Report written")

	return doc, nil
}

// loadReport resolves the report config. Without a definitions file the run
// uses the bare search template and the -report value only names the output.
func loadReport(settings *config.Settings, opts *options) (*report.Config, error) {
	path := opts.definitions
	if path == "" {
		path = settings.ReportDefinitions
	}
	if path == "" {
		return &report.Config{ReportID: opts.reportID}, nil
	}
	if opts.reportID == "" {
		return nil, fmt.Errorf("-report is required with a definitions file")
	}

	defs, err := report.LoadDefinitions(path)
	if err != nil {
		return nil, err
	}
	return defs.Get(opts.reportID)
}

func reportTitle(cfg *report.Config, opts *options) string {
	switch {
	case opts.title != "":
		return opts.title
	case cfg.Title != "":
		return cfg.Title
	case cfg.ReportID != "":
		return cfg.ReportID
	}
	return defaultTitle
}

// openStore builds the configured credential store and a func releasing it.
func openStore(ctx context.Context, settings *config.Settings) (credential.Store, func(), error) {
	switch settings.CredentialStore {
	case config.StoreRedis:
		opts, err := redisOptions(settings.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		return credential.NewRedisStore(rdb, ""), func() { rdb.Close() }, nil

	case config.StoreBadger:
		store, err := credential.OpenBadgerStore(settings.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.StoreMemory, "":
		return credential.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", settings.CredentialStore)
}

// redisOptions accepts a redis:// URL or a bare host:port address.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}
