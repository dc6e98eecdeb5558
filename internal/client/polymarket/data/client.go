package polymarketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"polymarket-ingest/internal/client/polymarket"
)

const DefaultHost = "https://data-api.polymarket.com"

type Client struct {
	rest *polymarket.RESTClient
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{rest: polymarket.NewRESTClient(httpClient, host)}
}

type PositionsParams struct {
	User          string
	SizeThreshold string
	Redeemable    bool
	Mergeable     bool
	Limit         int
	Offset        int
	SortBy        string
	SortDirection string
}

func (c *Client) GetPositions(ctx context.Context, params PositionsParams) ([]Position, error) {
	if params.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	query := url.Values{}
	query.Set("user", params.User)
	threshold := params.SizeThreshold
	if threshold == "" {
		threshold = "0"
	}
	query.Set("sizeThreshold", threshold)
	query.Set("redeemable", strconv.FormatBool(params.Redeemable))
	query.Set("mergeable", strconv.FormatBool(params.Mergeable))
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset))
	if params.SortBy != "" {
		query.Set("sortBy", params.SortBy)
	}
	if params.SortDirection != "" {
		query.Set("sortDirection", params.SortDirection)
	}
	body, err := c.rest.Get(ctx, "/positions", query)
	if err != nil {
		return nil, err
	}
	elems, err := polymarket.DecodeArray[Position](body, "positions")
	if err != nil {
		return nil, err
	}
	positions := make([]Position, len(elems))
	for i, el := range elems {
		if el.Err != nil {
			positions[i] = Position{
				ProxyWallet: polymarket.LookupString(el.Raw, "proxyWallet"),
				Asset:       polymarket.LookupString(el.Raw, "asset"),
				DecodeErr:   el.Err,
			}
			continue
		}
		positions[i] = el.Value
	}
	return positions, nil
}

type TradesParams struct {
	User      string
	Limit     int
	Offset    int
	TakerOnly bool
}

func (c *Client) GetTrades(ctx context.Context, params TradesParams) ([]Trade, error) {
	if params.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	query := url.Values{}
	query.Set("user", params.User)
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset))
	query.Set("takerOnly", strconv.FormatBool(params.TakerOnly))
	body, err := c.rest.Get(ctx, "/trades", query)
	if err != nil {
		return nil, err
	}
	elems, err := polymarket.DecodeArray[Trade](body, "trades")
	if err != nil {
		return nil, err
	}
	trades := make([]Trade, len(elems))
	for i, el := range elems {
		if el.Err != nil {
			trades[i] = Trade{
				ProxyWallet:     polymarket.LookupString(el.Raw, "proxyWallet"),
				TransactionHash: polymarket.LookupString(el.Raw, "transactionHash"),
				DecodeErr:       el.Err,
			}
			continue
		}
		trades[i] = el.Value
	}
	return trades, nil
}
