package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/fxpulse/internal/platform/http"
	"github.com/Alias1177/fxpulse/models"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:        options.RequestTimeout,
			RequestsPerSec: options.RequestsPerSec,
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}
}

func (c *Client) Name() string { return "twelvedata" }

// timeSeriesResponse represents the /time_series payload; prices arrive as strings
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toInterval maps chart-style intervals onto TwelveData names
func toInterval(interval string) string {
	switch interval {
	case "1d":
		return "1day"
	case "1wk":
		return "1week"
	case "1m":
		return "1min"
	case "5m":
		return "5min"
	case "15m":
		return "15min"
	case "30m":
		return "30min"
	default:
		return interval
	}
}

// Fetch downloads bars for symbol (e.g. "GBP/USD"); period is converted into an outputsize
func (c *Client) Fetch(ctx context.Context, symbol, period, interval string) (*models.PriceSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", toInterval(interval))
	params.Set("outputsize", strconv.Itoa(models.CandlesFor(period, interval)))
	params.Set("timezone", "UTC")
	params.Set("apikey", c.apiKey)

	c.logger.Debug().Str("symbol", symbol).Str("period", period).Str("interval", interval).Msg("Fetching candles")

	body, err := c.httpClient.GetBody(ctx, c.baseURL+"/time_series?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("twelvedata fetch %s: %w", symbol, err)
	}

	series, err := c.parse(symbol, interval, body)
	if err != nil {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, err)
	}

	c.logger.Debug().Str("symbol", symbol).Int("count", series.Len()).Msg("Fetched candles")
	return series, nil
}

func (c *Client) parse(symbol, interval string, body []byte) (*models.PriceSeries, error) {
	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}
	if data.Status == "error" {
		c.logger.Error().Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return nil, fmt.Errorf("api error %d: %s", data.Code, data.Message)
	}
	if len(data.Values) == 0 {
		return nil, models.ErrNoData
	}

	index := make(map[time.Time]int, len(data.Values))
	bars := make([]models.PriceBar, 0, len(data.Values))
	rejected := 0
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime)
		if err != nil {
			rejected++
			continue
		}
		bar, err := models.ParseBar(ts, parsePrice(v.Open), parsePrice(v.High), parsePrice(v.Low), parsePrice(v.Close))
		if err != nil {
			rejected++
			c.logger.Debug().Err(err).Str("symbol", symbol).Str("datetime", v.Datetime).Msg("Rejected candle")
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
		c.logger.Warn().Str("symbol", symbol).Int("rejected", rejected).Msg("Dropped malformed candles")
	}
	if len(bars) == 0 {
		return nil, models.ErrNoData
	}

	// Values arrive newest first; NewSeries restores chronological order
	series, err := models.NewSeries(symbol, interval, bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}
	return series, nil
}

func parseDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// parsePrice returns nil for empty or non-numeric fields
func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
