package universe

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/database"
)

// PriceRepository stores and retrieves daily prices from the history database.
type PriceRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(db *database.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("component", "price_repository").Logger(),
	}
}

// UpsertAsset registers an asset in the universe.
func (r *PriceRepository) UpsertAsset(asset Asset) error {
	_, err := r.db.Exec(
		`INSERT INTO assets (symbol, name) VALUES (?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET name = excluded.name`,
		asset.Symbol, asset.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.Symbol, err)
	}
	return nil
}

// ListAssets returns the universe ordered by symbol.
func (r *PriceRepository) ListAssets() ([]Asset, error) {
	rows, err := r.db.Query(`SELECT symbol, name FROM assets ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Symbol, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// UpsertPrices stores a batch of daily prices within a single transaction.
func (r *PriceRepository) UpsertPrices(prices []DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)
			 ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close`,
		)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.Exec(p.Symbol, p.Date, p.Close); err != nil {
				return fmt.Errorf("failed to upsert price %s/%s: %w", p.Symbol, p.Date, err)
			}
		}
		return nil
	})
}

// GetDailyPrices returns prices for a symbol in ascending date order.
// A limit of 0 means no limit.
func (r *PriceRepository) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	query := `SELECT symbol, date, close FROM daily_prices WHERE symbol = ? ORDER BY date ASC`
	args := []interface{}{symbol}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// AlignedSeries builds a TimeSeries for the given symbols over a lookback
// window, aligned on the union of observed dates. Gaps are NaN; callers
// typically chain FillMissing.
func (r *PriceRepository) AlignedSeries(symbols []string, lookbackDays int) (TimeSeries, error) {
	if len(symbols) == 0 {
		return TimeSeries{}, fmt.Errorf("no symbols provided")
	}

	startTime := time.Now().AddDate(0, 0, -lookbackDays)
	startDate := startTime.UTC().Format("2006-01-02")

	pricesBySymbol := make(map[string]map[string]float64, len(symbols))
	dateSet := make(map[string]bool)

	for _, symbol := range symbols {
		dailyPrices, err := r.GetDailyPrices(symbol, 0)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get prices for symbol")
			continue
		}

		pricesBySymbol[symbol] = make(map[string]float64, len(dailyPrices))
		for _, p := range dailyPrices {
			if p.Date >= startDate {
				pricesBySymbol[symbol][p.Date] = p.Close
				dateSet[p.Date] = true
			}
		}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	data := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		prices := make([]float64, len(dates))
		for i, date := range dates {
			if price, ok := pricesBySymbol[symbol][date]; ok {
				prices[i] = price
			} else {
				prices[i] = math.NaN()
			}
		}
		data[symbol] = prices
	}

	r.log.Debug().
		Int("num_dates", len(dates)).
		Int("num_symbols", len(symbols)).
		Msg("Built aligned price series")

	return TimeSeries{Dates: dates, Data: data}, nil
}
