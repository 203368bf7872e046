package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
)

// AlpacaConfig configures the alternative Alpaca-backed provider.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DateFrom  string
}

// AlpacaProvider serves daily bars from the Alpaca market data API, rendered
// into the same {"name": ..., "history": {...}} shape the World Trading Data
// endpoint returns, so the fetch loop does not care which provider ran.
// Alpaca only covers US equities, index symbols like "^DAX" come back empty.
type AlpacaProvider struct {
	md       *marketdata.Client
	dateFrom time.Time
	logger   *zap.Logger
}

func NewAlpacaProvider(cfg AlpacaConfig, logger *zap.Logger) (*AlpacaProvider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("ALPACA_API_KEY / ALPACA_SECRET_KEY: %w", ErrMissingCredential)
	}
	if cfg.DateFrom == "" {
		cfg.DateFrom = DefaultDateFrom
	}

	dateFrom, err := time.Parse("2006-01-02", cfg.DateFrom)
	if err != nil {
		return nil, fmt.Errorf("parsing date_from %q: %w", cfg.DateFrom, err)
	}

	return &AlpacaProvider{
		md: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Feed:      marketdata.IEX,
		}),
		dateFrom: dateFrom,
		logger:   logger,
	}, nil
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// historyEnvelope mirrors the World Trading Data response body.
type historyEnvelope struct {
	Name    string           `json:"name"`
	History map[string]ohlcv `json:"history"`
}

type ohlcv struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Volume string `json:"volume"`
}

func (p *AlpacaProvider) History(ctx context.Context, symbol string) ([]byte, error) {
	bars, err := p.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     p.dateFrom,
		End:       time.Now(),
		Feed:      marketdata.IEX,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}

	env := historyEnvelope{
		Name:    symbol,
		History: make(map[string]ohlcv, len(bars)),
	}
	for _, bar := range bars {
		env.History[bar.Timestamp.Format("2006-01-02")] = ohlcv{
			Open:   strconv.FormatFloat(bar.Open, 'f', 2, 64),
			Close:  strconv.FormatFloat(bar.Close, 'f', 2, 64),
			High:   strconv.FormatFloat(bar.High, 'f', 2, 64),
			Low:    strconv.FormatFloat(bar.Low, 'f', 2, 64),
			Volume: strconv.FormatUint(bar.Volume, 10),
		}
	}

	p.logger.Debug("Fetched Alpaca bars",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)))

	return json.Marshal(env)
}
