// Package factor fetches the per-stock factor categories from the data
// provider and assembles them into one wide daily time series with the fixed
// output column layout.
package factor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"

	"factorpipe/internal/provider"
)

// calendarEpoch is the start of the provider's trading calendar. Using a
// fixed start keeps the calendar fetch identical across all stocks in a run
// so the session can serve it once.
const calendarEpoch = "19900101"

// MarketData is the slice of the provider session Generate needs. The
// concrete implementation is *provider.Session; tests supply stubs.
type MarketData interface {
	Instrument(ctx context.Context, code string) (*provider.Instrument, error)
	TradingCalendar(ctx context.Context, start, end string) ([]string, error)
	DailyPrices(ctx context.Context, code, start, end string, adjust provider.AdjustType) ([]provider.DailyBar, error)
	CapitalFlow(ctx context.Context, code, start, end string) ([]provider.FlowPoint, error)
	TurnoverRates(ctx context.Context, code, start, end string) ([]provider.TurnoverPoint, error)
	FundamentalFactors(ctx context.Context, code string, factors []string, start, end string) ([]provider.FactorRow, error)
	HolderCounts(ctx context.Context, code, start, end string) ([]provider.HolderPoint, error)
}

// Generate builds the enriched factor frame for one stock from its listing
// date through endDate. Every error message names the provider data category
// that failed; the failure summary groups on those names.
func Generate(ctx context.Context, md MarketData, code, endDate string) (*Frame, error) {
	inst, err := md.Instrument(ctx, code)
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("instrument lookup returned no data for %s", code)
		}
		return nil, fmt.Errorf("instrument lookup failed: %w", err)
	}
	if inst.ListedDate == "" {
		return nil, fmt.Errorf("instrument lookup returned no listed date for %s", code)
	}
	start := inst.ListedDate

	calendar, err := md.TradingCalendar(ctx, calendarEpoch, endDate)
	if err != nil {
		return nil, fmt.Errorf("trading calendar fetch failed: %w", err)
	}
	tradingDays := make(map[string]struct{}, len(calendar))
	for _, day := range calendar {
		tradingDays[day] = struct{}{}
	}

	adjusted, err := md.DailyPrices(ctx, code, start, endDate, provider.AdjustPostVolume)
	if err != nil {
		return nil, fmt.Errorf("daily prices (adjusted) fetch failed: %w", err)
	}
	if len(adjusted) == 0 {
		return nil, fmt.Errorf("daily prices (adjusted) returned no data for %s between %s and %s", code, start, endDate)
	}

	unadjusted, err := md.DailyPrices(ctx, code, start, endDate, provider.AdjustNone)
	if err != nil {
		return nil, fmt.Errorf("daily prices (unadjusted) fetch failed: %w", err)
	}
	if len(unadjusted) == 0 {
		return nil, fmt.Errorf("daily prices (unadjusted) returned no data for %s between %s and %s", code, start, endDate)
	}

	flow, err := md.CapitalFlow(ctx, code, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("capital flow fetch failed: %w", err)
	}
	if len(flow) == 0 {
		return nil, fmt.Errorf("capital flow returned no data for %s", code)
	}

	turnover, err := md.TurnoverRates(ctx, code, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("turnover rates fetch failed: %w", err)
	}
	if len(turnover) == 0 {
		return nil, fmt.Errorf("turnover rates returned no data for %s", code)
	}

	fundamentals, err := md.FundamentalFactors(ctx, code, FundamentalFactors, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("fundamental factors fetch failed: %w", err)
	}
	if len(fundamentals) == 0 {
		return nil, fmt.Errorf("fundamental factors returned no data for %s between %s and %s", code, start, endDate)
	}

	holders, err := md.HolderCounts(ctx, code, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("holder counts fetch failed: %w", err)
	}
	if len(holders) == 0 {
		return nil, fmt.Errorf("holder counts returned no data for %s", code)
	}

	return assemble(inst, adjusted, unadjusted, flow, turnover, fundamentals, holders, tradingDays), nil
}

// assemble joins the category series on the adjusted daily axis, derives the
// prev-close family of columns, and as-of merges the quarterly holder data.
func assemble(
	inst *provider.Instrument,
	adjusted, unadjusted []provider.DailyBar,
	flow []provider.FlowPoint,
	turnover []provider.TurnoverPoint,
	fundamentals []provider.FactorRow,
	holders []provider.HolderPoint,
	tradingDays map[string]struct{},
) *Frame {
	sort.Slice(adjusted, func(i, j int) bool { return adjusted[i].Date < adjusted[j].Date })
	sort.Slice(holders, func(i, j int) bool { return holders[i].Date < holders[j].Date })

	unadjByDate := make(map[string]provider.DailyBar, len(unadjusted))
	for _, b := range unadjusted {
		unadjByDate[b.Date] = b
	}
	flowByDate := make(map[string]provider.FlowPoint, len(flow))
	for _, p := range flow {
		flowByDate[p.Date] = p
	}
	turnByDate := make(map[string]provider.TurnoverPoint, len(turnover))
	for _, p := range turnover {
		turnByDate[p.Date] = p
	}
	fundByDate := make(map[string]map[string]float64, len(fundamentals))
	for _, r := range fundamentals {
		fundByDate[r.Date] = r.Values
	}

	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
	}
	frame := &Frame{Header: header}

	prevClose := math.NaN()
	for _, bar := range adjusted {
		if len(tradingDays) > 0 {
			if _, ok := tradingDays[bar.Date]; !ok {
				continue
			}
		}

		vals := map[string]float64{
			"open":           bar.Open,
			"high":           bar.High,
			"low":            bar.Low,
			"close":          bar.Close,
			"volume":         bar.Volume,
			"total_turnover": bar.TotalTurnover,
			"vwap":           bar.VWAP,
			"prev_close":     prevClose,
		}
		if !math.IsNaN(prevClose) && prevClose != 0 {
			vals["change_amount"] = bar.Close - prevClose
			vals["change_pct"] = (bar.Close - prevClose) / prevClose * 100
			vals["amplitude"] = (bar.High - bar.Low) / prevClose * 100
		} else {
			vals["change_amount"] = math.NaN()
			vals["change_pct"] = math.NaN()
			vals["amplitude"] = math.NaN()
		}
		prevClose = bar.Close

		if ub, ok := unadjByDate[bar.Date]; ok {
			vals["unadjusted_volume"] = ub.Volume
		} else {
			vals["unadjusted_volume"] = math.NaN()
		}
		if fp, ok := flowByDate[bar.Date]; ok {
			vals["capital_inflow"] = fp.Inflow
			vals["capital_outflow"] = fp.Outflow
		} else {
			vals["capital_inflow"] = math.NaN()
			vals["capital_outflow"] = math.NaN()
		}

		tp, hasTurnover := turnByDate[bar.Date]
		// Zero turnover marks a suspended day; the original dataset drops
		// those rows.
		if !hasTurnover || tp.Rate <= 0 {
			continue
		}
		vals["turnover_rate"] = tp.Rate
		vals["free_turnover"] = tp.FreeRate
		vals["stock_free_circulation"] = tp.FreeCirculation

		fund := fundByDate[bar.Date]
		for _, key := range FundamentalFactors {
			if v, ok := fund[key]; ok {
				vals[key] = v
			} else {
				vals[key] = math.NaN()
			}
		}

		if hp, ok := asOf(holders, bar.Date); ok {
			vals["holder_count"] = hp.HolderCount
			vals["avg_shares_per_holder"] = hp.AvgSharesPerHolder
		} else {
			vals["holder_count"] = math.NaN()
			vals["avg_shares_per_holder"] = math.NaN()
		}

		row := make([]string, len(Columns))
		for i, c := range Columns {
			switch c.Key {
			case "date":
				row[i] = bar.Date
			case "order_book_id":
				row[i] = inst.OrderBookID
			case "stock_name":
				row[i] = inst.Symbol
			default:
				row[i] = formatValue(vals[c.Key])
			}
		}
		frame.Rows = append(frame.Rows, row)
	}

	return frame
}

// asOf returns the latest holder observation dated on or before day.
// holders must be sorted ascending by date.
func asOf(holders []provider.HolderPoint, day string) (provider.HolderPoint, bool) {
	idx := sort.Search(len(holders), func(i int) bool { return holders[i].Date > day })
	if idx == 0 {
		return provider.HolderPoint{}, false
	}
	return holders[idx-1], true
}
