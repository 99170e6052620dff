package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/fxpulse/internal/platform/http"
	"github.com/Alias1177/fxpulse/models"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches bars from the public Yahoo Finance chart API
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Yahoo client
type ClientOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new Yahoo Finance client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = defaultBaseURL
	}

	return &Client{
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:        options.RequestTimeout,
			RequestsPerSec: options.RequestsPerSec,
			UserAgent:      "Mozilla/5.0",
		}),
		logger: log.With().Str("component", "yahoo_client").Logger(),
	}
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse is the response structure from the chart API.
// Quote columns are nullable: holidays come back as null rows.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads bars for symbol (e.g. "GBPUSD=X") over period ("3mo") at interval ("1d")
func (c *Client) Fetch(ctx context.Context, symbol, period, interval string) (*models.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(interval))

	c.logger.Debug().Str("symbol", symbol).Str("period", period).Str("interval", interval).Msg("Fetching chart")

	body, err := c.httpClient.GetBody(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	series, err := c.parse(symbol, interval, body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	c.logger.Debug().Str("symbol", symbol).Int("count", series.Len()).Msg("Fetched bars")
	return series, nil
}

func (c *Client) parse(symbol, interval string, body []byte) (*models.PriceSeries, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, models.ErrNoData
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote block", models.ErrSchemaMismatch)
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n {
		return nil, fmt.Errorf("%w: %d timestamps vs o=%d h=%d l=%d c=%d", models.ErrSchemaMismatch,
			n, len(quote.Open), len(quote.High), len(quote.Low), len(quote.Close))
	}

	// Later rows win on duplicate timestamps
	index := make(map[int64]int, n)
	bars := make([]models.PriceBar, 0, n)
	rejected := 0
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil && quote.High[i] == nil && quote.Low[i] == nil && quote.Close[i] == nil {
			continue // skip null bars (holidays etc.)
		}
		bar, err := models.ParseBar(time.Unix(ts, 0).UTC(), quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i])
		if err != nil {
			rejected++
			c.logger.Debug().Err(err).Str("symbol", symbol).Int64("timestamp", ts).Msg("Rejected bar")
			continue
		}
		if pos, seen := index[ts]; seen {
			bars[pos] = bar
			continue
		}
		index[ts] = len(bars)
		bars = append(bars, bar)
	}

	if rejected > 0 {
		c.logger.Warn().Str("symbol", symbol).Int("rejected", rejected).Msg("Dropped malformed bars")
	}
	if len(bars) == 0 {
		return nil, models.ErrNoData
	}

	series, err := models.NewSeries(symbol, interval, bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}
	return series, nil
}
