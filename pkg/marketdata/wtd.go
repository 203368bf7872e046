package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the World Trading Data history endpoint.
	DefaultBaseURL = "https://api.worldtradingdata.com/api/v1/history"

	// DefaultDateFrom pins the start of every requested window to the week
	// the 2020 crash bottomed out.
	DefaultDateFrom = "2020-03-12"

	dateToLayout = "2006-01-02 15:04:05"
)

// WTDConfig configures a WTDClient. Only APIToken is required.
type WTDConfig struct {
	APIToken string
	BaseURL  string
	DateFrom string

	// RequestsPerMin > 0 enables client-side rate limiting. The free tier
	// bans bursty callers, so batch runs set this to stay under the quota.
	RequestsPerMin int
}

// WTDClient queries the World Trading Data history API. One GET per symbol,
// no retries, the default transport timeout is inherited from the client.
type WTDClient struct {
	baseURL  string
	dateFrom string
	apiToken string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewWTDClient(cfg WTDConfig, logger *zap.Logger) (*WTDClient, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("WTD_API_TOKEN: %w", ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DateFrom == "" {
		cfg.DateFrom = DefaultDateFrom
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMin)), 1)
	}

	return &WTDClient{
		baseURL:  cfg.BaseURL,
		dateFrom: cfg.DateFrom,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  limiter,
		logger:   logger,
	}, nil
}

func (c *WTDClient) Name() string { return "worldtradingdata" }

// History fetches the full history of one symbol. The date_to parameter is
// the wall clock at the moment of this request, not of the batch, so a long
// run keeps its windows current. Non-2xx bodies are returned as-is; whether
// they decode is the caller's problem, same as a 200 full of HTML.
func (c *WTDClient) History(ctx context.Context, symbol string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("date_from", c.dateFrom)
	params.Set("date_to", time.Now().Format(dateToLayout))
	params.Set("api_token", c.apiToken)

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", symbol, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Non-OK response from history API",
			zap.String("symbol", symbol),
			zap.Int("status", resp.StatusCode))
	}

	return body, nil
}
