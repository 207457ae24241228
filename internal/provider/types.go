package provider

import "fmt"

// AdjustType selects the price adjustment mode for daily bars.
type AdjustType string

const (
	// AdjustPostVolume returns post-adjusted prices with the volume adjusted
	// by the same factor.
	AdjustPostVolume AdjustType = "post_volume"
	// AdjustNone returns raw, unadjusted prices.
	AdjustNone AdjustType = "none"
)

// APIError is a non-2xx response from the data provider.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider %s: HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("provider %s: HTTP %d: %s", e.Endpoint, e.Status, e.Message)
}

// Instrument is the provider's listing metadata for one stock.
type Instrument struct {
	OrderBookID string `json:"order_book_id"`
	Symbol      string `json:"symbol"`
	ListedDate  string `json:"listed_date"` // YYYYMMDD
}

// DailyBar is one trading day of price data. Dates are YYYYMMDD.
type DailyBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	TotalTurnover float64 `json:"total_turnover"`
	VWAP          float64 `json:"vwap"`
}

// FlowPoint is one day of aggregate active buy/sell value.
type FlowPoint struct {
	Date    string  `json:"date"`
	Inflow  float64 `json:"capital_inflow"`
	Outflow float64 `json:"capital_outflow"`
}

// TurnoverPoint is one day of turnover data.
type TurnoverPoint struct {
	Date            string  `json:"date"`
	Rate            float64 `json:"turnover_rate"`
	FreeRate        float64 `json:"free_turnover"`
	FreeCirculation float64 `json:"stock_free_circulation"`
}

// FactorRow is one day of fundamental factor values keyed by factor name.
type FactorRow struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// HolderPoint is one quarterly shareholder-count observation.
type HolderPoint struct {
	Date               string  `json:"date"`
	HolderCount        float64 `json:"holder_count"`
	AvgSharesPerHolder float64 `json:"avg_shares_per_holder"`
}
