package factor

// Column maps an internal factor key to the header used in the enriched CSV.
type Column struct {
	Key    string
	Header string
}

// Columns is the fixed output layout. Every enriched CSV carries exactly
// these columns in exactly this order.
var Columns = []Column{
	{"date", "Trade Date"},
	{"order_book_id", "Stock Code"},
	{"stock_name", "Stock Name"},
	{"open", "Open"},
	{"high", "High"},
	{"low", "Low"},
	{"close", "Close"},
	{"prev_close", "Prev Close"},
	{"change_amount", "Change Amount"},
	{"change_pct", "Change Pct (%)"},
	{"amplitude", "Amplitude (%)"},
	{"total_turnover", "Turnover Value"},
	{"unadjusted_volume", "Unadjusted Volume"},
	{"volume", "Adjusted Volume"},
	{"vwap", "VWAP"},
	{"turnover_rate", "Turnover Rate (%)"},
	{"free_turnover", "Free Float Turnover Rate (%)"},
	{"stock_free_circulation", "Free Float Shares"},
	{"pe_ratio_lyr", "PE Ratio (LYR)"},
	{"pe_ratio_ttm", "PE Ratio (TTM)"},
	{"pb_ratio_lyr", "PB Ratio (LYR)"},
	{"pb_ratio_ttm", "PB Ratio (TTM)"},
	{"pb_ratio_lf", "PB Ratio (LF)"},
	{"ps_ratio_lyr", "PS Ratio (LYR)"},
	{"ps_ratio_ttm", "PS Ratio (TTM)"},
	{"dividend_yield_ttm", "Dividend Yield (TTM)"},
	{"market_cap_3", "Total Market Cap"},
	{"market_cap_2", "Float Market Cap"},
	{"book_to_market_ratio_lyr", "Book-to-Market (LYR)"},
	{"book_to_market_ratio_ttm", "Book-to-Market (TTM)"},
	{"book_to_market_ratio_lf", "Book-to-Market (LF)"},
	{"ebit_lyr", "EBIT (LYR)"},
	{"ebit_ttm", "EBIT (TTM)"},
	{"ebitda_lyr", "EBITDA (LYR)"},
	{"ebitda_ttm", "EBITDA (TTM)"},
	{"ebit_per_share_lyr", "EBIT per Share (LYR)"},
	{"ebit_per_share_ttm", "EBIT per Share (TTM)"},
	{"return_on_equity_lyr", "ROE (LYR)"},
	{"return_on_equity_ttm", "ROE (TTM)"},
	{"capital_inflow", "Capital Inflow"},
	{"capital_outflow", "Capital Outflow"},
	{"holder_count", "Holder Count"},
	{"avg_shares_per_holder", "Avg Shares per Holder"},
}

// FundamentalFactors are the factor keys requested from the provider's
// fundamentals endpoint, valued daily.
var FundamentalFactors = []string{
	"pe_ratio_lyr",
	"pe_ratio_ttm",
	"pb_ratio_lyr",
	"pb_ratio_ttm",
	"pb_ratio_lf",
	"ps_ratio_lyr",
	"ps_ratio_ttm",
	"dividend_yield_ttm",
	"market_cap_3",
	"market_cap_2",
	"book_to_market_ratio_lyr",
	"book_to_market_ratio_ttm",
	"book_to_market_ratio_lf",
	"ebit_lyr",
	"ebit_ttm",
	"ebitda_lyr",
	"ebitda_ttm",
	"ebit_per_share_lyr",
	"ebit_per_share_ttm",
	"return_on_equity_lyr",
	"return_on_equity_ttm",
}
