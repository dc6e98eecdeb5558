package polymarketdata

import "polymarket-ingest/internal/client/polymarket"

type Position struct {
	ProxyWallet        string             `json:"proxyWallet"`
	Asset              string             `json:"asset"`
	ConditionID        string             `json:"conditionId"`
	Size               polymarket.Decimal `json:"size"`
	AvgPrice           polymarket.Decimal `json:"avgPrice"`
	InitialValue       polymarket.Decimal `json:"initialValue"`
	CurrentValue       polymarket.Decimal `json:"currentValue"`
	CashPnl            polymarket.Decimal `json:"cashPnl"`
	PercentPnl         polymarket.Decimal `json:"percentPnl"`
	TotalBought        polymarket.Decimal `json:"totalBought"`
	RealizedPnl        polymarket.Decimal `json:"realizedPnl"`
	PercentRealizedPnl polymarket.Decimal `json:"percentRealizedPnl"`
	CurPrice           polymarket.Decimal `json:"curPrice"`
	Redeemable         bool               `json:"redeemable"`
	Mergeable          bool               `json:"mergeable"`
	NegativeRisk       bool               `json:"negativeRisk"`
	Title              string             `json:"title"`
	Slug               string             `json:"slug"`
	Icon               string             `json:"icon"`
	EventSlug          string             `json:"eventSlug"`
	Outcome            string             `json:"outcome"`
	OutcomeIndex       int                `json:"outcomeIndex"`
	OppositeOutcome    string             `json:"oppositeOutcome"`
	OppositeAsset      string             `json:"oppositeAsset"`
	EndDate            polymarket.Time    `json:"endDate"`

	// DecodeErr is set when the record could not be decoded; only
	// ProxyWallet and Asset are filled in then.
	DecodeErr error `json:"-"`
}

type Trade struct {
	ProxyWallet     string             `json:"proxyWallet"`
	Side            string             `json:"side"`
	Asset           string             `json:"asset"`
	ConditionID     string             `json:"conditionId"`
	Size            polymarket.Decimal `json:"size"`
	Price           polymarket.Decimal `json:"price"`
	Timestamp       polymarket.Time    `json:"timestamp"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	Icon            string             `json:"icon"`
	EventSlug       string             `json:"eventSlug"`
	Outcome         string             `json:"outcome"`
	OutcomeIndex    int                `json:"outcomeIndex"`
	TransactionHash string             `json:"transactionHash"`

	DecodeErr error `json:"-"`
}
