package yahoo

// value is Yahoo's {"raw": ..., "fmt": ...} number wrapper. Only the
// raw value matters here; a missing field unmarshals to the zero
// value and is handled by the factor validity checks downstream.
type value struct {
	Raw float64 `json:"raw"`
}

// quoteSummaryResponse covers the modules needed to derive the two
// magic-formula factors.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				EnterpriseValue value `json:"enterpriseValue"`
			} `json:"defaultKeyStatistics"`
			IncomeStatementHistory struct {
				IncomeStatementHistory []struct {
					EBIT value `json:"ebit"`
				} `json:"incomeStatementHistory"`
			} `json:"incomeStatementHistory"`
			BalanceSheetHistory struct {
				BalanceSheetStatements []struct {
					TotalCurrentAssets      value `json:"totalCurrentAssets"`
					TotalCurrentLiabilities value `json:"totalCurrentLiabilities"`
					PropertyPlantEquipment  value `json:"propertyPlantEquipment"`
				} `json:"balanceSheetStatements"`
			} `json:"balanceSheetHistory"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteSummary"`
}

// quoteResponse is the v7 quote endpoint envelope.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// screenerResponse is the equity screener envelope.
type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"finance"`
}
