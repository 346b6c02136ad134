package model

import "github.com/shopspring/decimal"

// FinanceTotal is the sum of settled payments over a period.
type FinanceTotal struct {
	Period string          `json:"period"`
	Method string          `json:"method,omitempty"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}
