package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Defaults for GET /coins/markets.
const (
	DefaultMarketsOrder          = "market_cap_desc"
	DefaultPriceChangePercentage = "1h,24h,7d,30d"
	MaxMarketsPerPage            = 250
)

// GetCoinsList fetches every coin id, optionally with its platform map.
func (c *Client) GetCoinsList(ctx context.Context, includePlatform bool) ([]CoinListEntry, error) {
	query := url.Values{}
	query.Set("include_platform", strconv.FormatBool(includePlatform))

	var resp []CoinListEntry
	if err := c.get(ctx, "coins/list", query, &resp); err != nil {
		return nil, fmt.Errorf("get coins list: %w", err)
	}
	return resp, nil
}

// GetCoinsMarkets fetches one page of the markets listing. Records are
// returned undecoded so a malformed record only fails its own transform.
func (c *Client) GetCoinsMarkets(ctx context.Context, opts MarketsOptions) ([]json.RawMessage, error) {
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	if opts.Order == "" {
		opts.Order = DefaultMarketsOrder
	}
	if opts.PerPage <= 0 || opts.PerPage > MaxMarketsPerPage {
		opts.PerPage = MaxMarketsPerPage
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PriceChangePercentage == "" {
		opts.PriceChangePercentage = DefaultPriceChangePercentage
	}

	query := url.Values{}
	query.Set("vs_currency", opts.VsCurrency)
	query.Set("order", opts.Order)
	query.Set("per_page", strconv.Itoa(opts.PerPage))
	query.Set("page", strconv.Itoa(opts.Page))
	query.Set("sparkline", "false")
	query.Set("price_change_percentage", opts.PriceChangePercentage)

	var resp []json.RawMessage
	if err := c.get(ctx, "coins/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get coins markets page %d: %w", opts.Page, err)
	}
	return resp, nil
}

// GetCoin fetches one coin's detail payload undecoded.
func (c *Client) GetCoin(ctx context.Context, id string, opts CoinOptions) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", strconv.FormatBool(opts.MarketData))
	query.Set("community_data", strconv.FormatBool(opts.CommunityData))
	query.Set("developer_data", "false")
	query.Set("sparkline", "false")

	body, err := c.Fetch(ctx, "coins/"+url.PathEscape(id), query)
	if err != nil {
		return nil, fmt.Errorf("get coin %s: %w", id, err)
	}
	return json.RawMessage(body), nil
}

// Ping calls the liveness endpoint.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var resp PingResponse
	if err := c.get(ctx, "ping", nil, &resp); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &resp, nil
}

// ValidateConnection reports whether the API answers ping with a gecko_says message.
func (c *Client) ValidateConnection(ctx context.Context) bool {
	resp, err := c.Ping(ctx)
	if err != nil {
		c.logger.Warn("api connection check failed", "error", err)
		return false
	}
	if resp.GeckoSays == "" {
		c.logger.Warn("api connection check returned no gecko_says")
		return false
	}
	return true
}
