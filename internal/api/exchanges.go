package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// GetExchangesList fetches every exchange id.
func (c *Client) GetExchangesList(ctx context.Context) ([]ExchangeListEntry, error) {
	var resp []ExchangeListEntry
	if err := c.get(ctx, "exchanges/list", nil, &resp); err != nil {
		return nil, fmt.Errorf("get exchanges list: %w", err)
	}
	return resp, nil
}

// GetExchange fetches one exchange's detail payload undecoded.
func (c *Client) GetExchange(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := c.Fetch(ctx, "exchanges/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get exchange %s: %w", id, err)
	}
	return json.RawMessage(body), nil
}
