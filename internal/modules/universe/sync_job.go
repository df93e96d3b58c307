package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/clients/marketdata"
)

// syncTimeout bounds a full price sync run.
const syncTimeout = 5 * time.Minute

// PriceFeed is the slice of the market data client the sync job needs.
type PriceFeed interface {
	DailyClosesBatch(ctx context.Context, symbols []string, lookbackDays int) (map[string][]marketdata.PricePoint, error)
}

// PriceSyncJob pulls daily closes from the external feed into history.db.
// It implements scheduler.Job.
type PriceSyncJob struct {
	feed         PriceFeed
	repo         *PriceRepository
	lookbackDays int
	log          zerolog.Logger
}

// NewPriceSyncJob creates a new price sync job.
func NewPriceSyncJob(feed PriceFeed, repo *PriceRepository, lookbackDays int, log zerolog.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		feed:         feed,
		repo:         repo,
		lookbackDays: lookbackDays,
		log:          log.With().Str("job", "price_sync").Logger(),
	}
}

// Name returns the job name.
func (j *PriceSyncJob) Name() string { return "price_sync" }

// Run fetches closes for every universe asset and upserts them.
func (j *PriceSyncJob) Run() error {
	assets, err := j.repo.ListAssets()
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	if len(assets) == 0 {
		j.log.Debug().Msg("Universe is empty, nothing to sync")
		return nil
	}

	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.Symbol
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	batches, err := j.feed.DailyClosesBatch(ctx, symbols, j.lookbackDays)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}

	var prices []DailyPrice
	for symbol, points := range batches {
		for _, p := range points {
			prices = append(prices, DailyPrice{Symbol: symbol, Date: p.Date, Close: p.Close})
		}
	}

	if err := j.repo.UpsertPrices(prices); err != nil {
		return fmt.Errorf("failed to store prices: %w", err)
	}

	j.log.Info().
		Int("num_symbols", len(symbols)).
		Int("num_prices", len(prices)).
		Msg("Price sync completed")

	return nil
}
