package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/enrich"
	"github.com/BlendBerisha/businessscrapper/internal/storage"
	"github.com/BlendBerisha/businessscrapper/internal/store"
	"github.com/BlendBerisha/businessscrapper/internal/worker"
	"github.com/BlendBerisha/businessscrapper/pkg/millionverifier"
	"github.com/BlendBerisha/businessscrapper/pkg/targetron"
)

// initStore opens the configured queue store without migrating.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	}
	return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// initProcessor wires the store, uploader, and area-code map into a
// Processor. Callers should defer st.Close().
func initProcessor(ctx context.Context) (*worker.Processor, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	uploader, err := storage.New(cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	// A missing enrichment workbook degrades to blank area-code columns.
	var areaCodes enrich.AreaCodeMap
	if _, statErr := os.Stat(cfg.Enrich.AreaCodesPath); statErr == nil {
		areaCodes, err = enrich.LoadAreaCodes(cfg.Enrich.AreaCodesPath)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		zap.L().Info("loaded area codes",
			zap.String("path", cfg.Enrich.AreaCodesPath),
			zap.Int("entries", len(areaCodes)),
		)
	} else {
		zap.L().Warn("area codes workbook not found, enrichment disabled",
			zap.String("path", cfg.Enrich.AreaCodesPath),
		)
	}

	proc := worker.NewProcessor(st, uploader, areaCodes, worker.Options{
		SettingsKey:     cfg.Queue.SettingsKey,
		FetchAttempts:   cfg.Scrape.FetchAttempts,
		RetryBase:       time.Duration(cfg.Scrape.RetryBaseMs) * time.Millisecond,
		Pacing:          time.Duration(cfg.MillionVerifier.PacingMs) * time.Millisecond,
		StaleAfter:      time.Duration(cfg.Queue.StaleAfterMins) * time.Minute,
		CampaignEnabled: cfg.Instantly.Enabled,
		NewLeadClient: func(apiKey string) targetron.Client {
			return targetron.NewClient(apiKey,
				targetron.WithBaseURL(cfg.Targetron.BaseURL),
				targetron.WithTimeout(time.Duration(cfg.Targetron.TimeoutMs)*time.Millisecond),
			)
		},
		NewVerifyClient: func(apiKey string) millionverifier.Client {
			return millionverifier.NewClient(apiKey,
				millionverifier.WithBaseURL(cfg.MillionVerifier.BaseURL),
				millionverifier.WithTimeout(time.Duration(cfg.MillionVerifier.TimeoutMs)*time.Millisecond),
			)
		},
	})
	return proc, st, nil
}
