package polymarketgamma

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"polymarket-ingest/internal/client/polymarket"
)

const DefaultHost = "https://gamma-api.polymarket.com"

type Client struct {
	rest *polymarket.RESTClient
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{rest: polymarket.NewRESTClient(httpClient, host)}
}

type ListMarketsParams struct {
	Limit      int
	Offset     int
	IncludeTag bool
	Closed     *bool
	Order      string
	Ascending  *bool
}

func (c *Client) ListMarkets(ctx context.Context, params ListMarketsParams) ([]Market, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset))
	if params.IncludeTag {
		query.Set("include_tag", "true")
	}
	if params.Closed != nil {
		query.Set("closed", strconv.FormatBool(*params.Closed))
	}
	if params.Order != "" {
		query.Set("order", params.Order)
	}
	if params.Ascending != nil {
		query.Set("ascending", strconv.FormatBool(*params.Ascending))
	}
	body, err := c.rest.Get(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	elems, err := polymarket.DecodeArray[Market](body, "markets")
	if err != nil {
		return nil, err
	}
	markets := make([]Market, len(elems))
	for i, el := range elems {
		m := el.Value
		if el.Err != nil {
			m = Market{ID: polymarket.ID(polymarket.LookupString(el.Raw, "id")), DecodeErr: el.Err}
		}
		m.Raw = el.Raw
		markets[i] = m
	}
	return markets, nil
}

type ListCommentsParams struct {
	ParentEntityType string
	ParentEntityID   int64
	Limit            int
	Offset           int
}

func (c *Client) ListComments(ctx context.Context, params ListCommentsParams) ([]Comment, error) {
	entityType := params.ParentEntityType
	if entityType == "" {
		entityType = "Event"
	}
	query := url.Values{}
	query.Set("parent_entity_type", entityType)
	query.Set("parent_entity_id", strconv.FormatInt(params.ParentEntityID, 10))
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset))
	body, err := c.rest.Get(ctx, "/comments", query)
	if err != nil {
		return nil, err
	}
	elems, err := polymarket.DecodeArray[Comment](body, "comments")
	if err != nil {
		return nil, err
	}
	comments := make([]Comment, len(elems))
	for i, el := range elems {
		c := el.Value
		if el.Err != nil {
			c = Comment{ID: polymarket.ID(polymarket.LookupString(el.Raw, "id")), DecodeErr: el.Err}
		}
		c.Raw = el.Raw
		comments[i] = c
	}
	return comments, nil
}
