package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"polymarket-ingest/internal/client/polymarket"
)

func mustJSON(v any) datatypes.JSON {
	payload, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}

func rawJSON(raw json.RawMessage, fallback any) datatypes.JSON {
	if len(raw) > 0 {
		return datatypes.JSON(raw)
	}
	return mustJSON(fallback)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func decimalPtr(v *polymarket.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := v.Decimal
	return &d
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}
