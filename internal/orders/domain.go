package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/shared"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority ranks how urgently an order should ship.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Line is one item on an order.
type Line struct {
	ItemID        string          `json:"itemId"`
	ItemName      string          `json:"itemName"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
}

// Order is a purchase order placed with one supplier.
type Order struct {
	ID               string          `json:"id"`
	SupplierID       string          `json:"supplierId"`
	Lines            []Line          `json:"lines"`
	Status           Status          `json:"status"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Priority         Priority        `json:"priority"`
	AutoOrder        bool            `json:"autoOrder"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	ExpectedDelivery time.Time       `json:"expectedDelivery"`
}

// recalculate refreshes line costs and the order total.
func (o *Order) recalculate() {
	total := decimal.Zero
	for i := range o.Lines {
		l := &o.Lines[i]
		l.EstimatedCost = l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		total = total.Add(l.EstimatedCost)
	}
	o.TotalAmount = total
}

func (o *Order) lineIndex(itemID string) int {
	for i, l := range o.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

type document struct {
	Orders []Order `json:"orders"`
}

var (
	// ErrOrderNotFound is returned when an order id does not resolve.
	ErrOrderNotFound = fmt.Errorf("orders: order %w", shared.ErrNotFound)
	// ErrInvalidTransition is returned for status moves the lifecycle forbids.
	ErrInvalidTransition = fmt.Errorf("orders: invalid status transition: %w", shared.ErrConflict)
	// ErrInvalidOrder is returned for malformed order input.
	ErrInvalidOrder = fmt.Errorf("orders: invalid order: %w", shared.ErrValidation)
)
