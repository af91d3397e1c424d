package domain

import "time"

// A CartLine is one product's reserved quantity with the name and price
// captured when the first unit was reserved.
type CartLine struct {
	ProductID string
	Name      string
	Price     ProductPrice
	Quantity  int
}

type CartSummary struct {
	Lines []CartLine
	Count int
	Total float64
}

// A Snapshot is the state handed back to the presentation layer
// after every cart mutation.
type Snapshot struct {
	Cart CartSummary
	Page ProductPage
}

type StockReason string

const (
	StockReserve StockReason = "reserve"
	StockRelease StockReason = "release"
	StockClear   StockReason = "clear"
	StockReapply StockReason = "reapply"
)

// A StockEvent records a single movement of units between
// available stock and the cart.
type StockEvent struct {
	ProductID  string
	Delta      int
	Reason     StockReason
	Available  int
	OccurredAt time.Time
}
