package clob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"polymarket-ingest/internal/client/polymarket"
)

const DefaultHost = "https://clob.polymarket.com"

type Client struct {
	rest *polymarket.RESTClient
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{rest: polymarket.NewRESTClient(httpClient, host)}
}

type PriceHistoryParams struct {
	TokenID  string
	Interval string
	Fidelity int
	StartTs  *int64
	EndTs    *int64
}

func (c *Client) GetPriceHistory(ctx context.Context, params PriceHistoryParams) ([]PricePoint, error) {
	if params.TokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("market", params.TokenID)
	// startTs/endTs and interval are mutually exclusive upstream.
	if params.StartTs != nil {
		query.Set("startTs", strconv.FormatInt(*params.StartTs, 10))
		if params.EndTs != nil {
			query.Set("endTs", strconv.FormatInt(*params.EndTs, 10))
		}
	} else if params.Interval != "" {
		query.Set("interval", params.Interval)
	}
	if params.Fidelity > 0 {
		query.Set("fidelity", strconv.Itoa(params.Fidelity))
	}
	body, err := c.rest.Get(ctx, "/prices-history", query)
	if err != nil {
		return nil, err
	}
	return parsePriceHistory(body)
}
