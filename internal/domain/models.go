package domain

import "time"

// TradeSide represents the direction of an order.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// HoldingStatus is the lifecycle state of a holding lot.
// Active is the initial state; sold is terminal and never reverts.
type HoldingStatus string

const (
	HoldingActive HoldingStatus = "active"
	HoldingSold   HoldingStatus = "sold"
)

// StockMetric holds the raw factor inputs for one symbol plus the
// ranks assigned by the ranker. Rank fields are zero until a ranking
// pass assigns them.
type StockMetric struct {
	Symbol          string  `json:"symbol"`
	ReturnOnCapital float64 `json:"return_on_capital"`
	EarningsYield   float64 `json:"earnings_yield"`
	EYRank          int     `json:"ey_rank,omitempty"`
	ROCRank         int     `json:"roc_rank,omitempty"`
	CombinedRank    int     `json:"combined_rank,omitempty"`
}

// Holding is a persisted acquisition lot. Rows are append-only; the
// only mutation ever applied is the active -> sold transition.
type Holding struct {
	ID               int64         `json:"id"`
	Symbol           string        `json:"symbol"`
	Quantity         int64         `json:"quantity"`
	AcquisitionDate  time.Time     `json:"acquisition_date"`
	AcquisitionPrice float64       `json:"acquisition_price"`
	Status           HoldingStatus `json:"status"`
}

// Transaction is an immutable record of one confirmed order.
type Transaction struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        TradeSide `json:"side"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	TotalAmount float64   `json:"total_amount"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// AccountSnapshot is the broker account state at the instant it was
// fetched. There is no staleness protection; callers that care about
// drift must re-derive cash themselves.
type AccountSnapshot struct {
	Cash           float64 `json:"cash"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// BrokerPosition is an open position as reported by the broker.
type BrokerPosition struct {
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CurrentPrice  float64 `json:"current_price"`
}

// OrderConfirmation is the broker's acknowledgement of a filled order.
type OrderConfirmation struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     TradeSide `json:"side"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
}

// TradeEvent is the payload handed to the notifier after a confirmed
// order.
type TradeEvent struct {
	Kind     TradeSide `json:"kind"`
	Symbol   string    `json:"symbol"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
}
