package clob

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-ingest/internal/client/polymarket"
)

type PricePoint struct {
	TS    time.Time
	Price decimal.Decimal
}

// parsePriceHistory accepts {"history":[...]}, {"prices":[...]},
// {"data":[...]} or a bare array. Points are {t,p} objects or [t,p] pairs;
// points missing either half are dropped.
func parsePriceHistory(body []byte) ([]PricePoint, error) {
	var raw struct {
		History []json.RawMessage `json:"history"`
		Prices  []json.RawMessage `json:"prices"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		switch {
		case raw.History != nil:
			return parsePricePointList(raw.History), nil
		case raw.Prices != nil:
			return parsePricePointList(raw.Prices), nil
		case raw.Data != nil:
			return parsePricePointList(raw.Data), nil
		}
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return parsePricePointList(list), nil
	}
	return nil, &polymarket.DecodeError{What: "price history", Err: fmt.Errorf("unknown format")}
}

func parsePricePointList(items []json.RawMessage) []PricePoint {
	points := make([]PricePoint, 0, len(items))
	for _, item := range items {
		if len(item) == 0 {
			continue
		}
		if point, ok := parsePricePointArray(item); ok {
			points = append(points, point)
			continue
		}
		if point, ok := parsePricePointObject(item); ok {
			points = append(points, point)
		}
	}
	return points
}

func parsePricePointArray(item json.RawMessage) (PricePoint, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(item, &arr); err != nil || len(arr) < 2 {
		return PricePoint{}, false
	}
	return buildPoint(arr[0], arr[1])
}

func parsePricePointObject(item json.RawMessage) (PricePoint, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return PricePoint{}, false
	}
	return buildPoint(firstRaw(obj, "t", "ts", "timestamp", "time"), firstRaw(obj, "p", "price"))
}

func buildPoint(tsRaw, priceRaw json.RawMessage) (PricePoint, bool) {
	if isMissing(tsRaw) || isMissing(priceRaw) {
		return PricePoint{}, false
	}
	var ts polymarket.Time
	if err := json.Unmarshal(tsRaw, &ts); err != nil || ts.IsZero() {
		return PricePoint{}, false
	}
	var price polymarket.Decimal
	if err := json.Unmarshal(priceRaw, &price); err != nil {
		return PricePoint{}, false
	}
	return PricePoint{TS: ts.Time, Price: price.Decimal}, true
}

func isMissing(b json.RawMessage) bool {
	return len(b) == 0 || string(b) == "null"
}

func firstRaw(m map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}
