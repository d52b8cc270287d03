package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// HTTPClient reads a price from a JSON feed endpoint:
//
//	{"answer": "200000000000", "decimals": 8, "updated_at": 1700000000}
//
// Any transport or decode failure is returned as-is; the caller decides.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

type feedResponse struct {
	Answer    decimal.Decimal `json:"answer"`
	Decimals  *uint8          `json:"decimals"`
	UpdatedAt int64           `json:"updated_at"`
}

// NewHTTPClient validates the endpoint and builds a client with the given timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil || endpoint == "" || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: oracle url %q", domain.ErrInvalidConfiguration, endpoint)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) LatestPrice(ctx context.Context) (domain.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PriceQuote{}, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(body))
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("decode oracle response: %w", err)
	}

	if feed.Decimals != nil && *feed.Decimals != domain.FeedDecimals {
		return domain.PriceQuote{}, fmt.Errorf("oracle feed reports %d decimals, want %d", *feed.Decimals, domain.FeedDecimals)
	}
	updatedAt := time.Now().UTC()
	if feed.UpdatedAt > 0 {
		updatedAt = time.Unix(feed.UpdatedAt, 0).UTC()
	}
	return domain.PriceQuote{
		Value:     feed.Answer,
		Decimals:  domain.FeedDecimals,
		UpdatedAt: updatedAt,
		Valid:     feed.Answer.IsPositive() && feed.Answer.IsInteger(),
	}, nil
}
