// Package app wires configuration into providers and services. The server and
// the operator CLI build the same graph through New.
package app

import (
	"net/http"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/config"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/finmind"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/metrics"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/service"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/twse"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/yahoo"
)

// Span lengths for feeds that tolerate longer ranges than daily FinMind prices.
const (
	eventSpanDays = 365
	chartSpanDays = 730
)

// App holds the wired services.
type App struct {
	Metrics       *metrics.Registry
	AdjustedPrice *service.AdjustedPriceService
	System        *service.SystemService
	Providers     []model.ProviderInfo
}

// New builds every provider from cfg. The registry observes all span fetchers.
func New(cfg *config.Config, reg *metrics.Registry) *App {
	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}
	base := cfg.Engine.SpanOptions()
	fetcher := func(opts spanfetch.Options) *spanfetch.Fetcher {
		return spanfetch.New(opts, spanfetch.WithObserver(reg))
	}

	eventOpts := base
	eventOpts.MaxSpanDays = max(base.MaxSpanDays, eventSpanDays)
	client := finmind.NewClient(cfg.Providers.FinMindBaseURL, cfg.Providers.FinMindToken, httpClient)
	fundamentals := finmind.NewFundamentals(client, fetcher(base), fetcher(eventOpts))

	primary := twse.NewFeed(cfg.Providers.TWSEBaseURL, httpClient, fetcher(twse.FetchOptions(base)))

	providers := []model.ProviderInfo{
		{Name: twse.Provider, Datasets: []string{twse.Dataset}, Enabled: true},
	}

	// Left as a nil interface when disabled so the service skips the feed.
	var adjusted service.AdjustedFeed
	chart := model.ProviderInfo{Name: yahoo.Provider, Datasets: []string{yahoo.Dataset}, Enabled: cfg.Engine.BackAdjustedFeed}
	if cfg.Engine.BackAdjustedFeed {
		chartOpts := base
		chartOpts.MaxSpanDays = max(base.MaxSpanDays, chartSpanDays)
		adjusted = yahoo.NewFeed(yahoo.NewFinanceClient(cfg.Providers.YahooBaseURL, httpClient), fetcher(chartOpts))
	} else {
		chart.Reason = "ENABLE_BACK_ADJUSTED_FEED=false"
	}
	providers = append(providers, chart)

	fm := model.ProviderInfo{
		Name: finmind.Provider,
		Datasets: []string{
			finmind.DatasetPrice,
			finmind.DatasetPriceAdj,
			finmind.DatasetDividendResult,
			finmind.DatasetSplitPrice,
		},
		Enabled: fundamentals.TokenPresent(),
	}
	if !fm.Enabled {
		fm.Reason = "FINMIND_TOKEN not set"
	}
	providers = append(providers, fm)

	svc := service.NewAdjustedPriceService(adjusted, primary, fundamentals, reg, service.Options{
		LookbackDays:   cfg.Engine.DividendLookbackDays,
		RequestTimeout: cfg.Engine.RequestTimeout,
	})

	return &App{
		Metrics:       reg,
		AdjustedPrice: svc,
		System:        service.NewSystemService(providers, fundamentals.TokenPresent()),
		Providers:     providers,
	}
}
