package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/stockroom/internal/shared"
)

// StockStatus classifies an item's on-hand quantity.
type StockStatus string

const (
	// StatusOut means nothing on hand.
	StatusOut StockStatus = "out"
	// StatusLow covers 1..5 on hand.
	StatusLow StockStatus = "low"
	// StatusMedium covers 6..20 on hand.
	StatusMedium StockStatus = "medium"
	// StatusGood is anything above 20.
	StatusGood StockStatus = "good"
)

// StockStatuses lists every status in severity order.
var StockStatuses = []StockStatus{StatusOut, StatusLow, StatusMedium, StatusGood}

// Valid reports whether s is a known status.
func (s StockStatus) Valid() bool {
	switch s {
	case StatusOut, StatusLow, StatusMedium, StatusGood:
		return true
	}
	return false
}

// SupplierStatus marks whether a supplier is in use.
type SupplierStatus string

const (
	SupplierActive   SupplierStatus = "active"
	SupplierInactive SupplierStatus = "inactive"
)

// DefaultUOM is applied to items without a unit of measure.
const DefaultUOM = "pieces"

// UnitsOfMeasure is the catalogue offered to clients. Unknown units are
// accepted on update and pass through untouched.
var UnitsOfMeasure = []string{
	"pieces", "each", "dozen", "cases", "boxes", "bags", "bunches",
	"lbs", "oz", "kg", "gallons", "quarts", "liters",
}

// Weekdays in delivery-schedule order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Contact holds optional supplier contact details.
type Contact struct {
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Address       string `json:"address,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Website       string `json:"website,omitempty" validate:"omitempty,url"`
}

// BusinessInfo holds supplier ordering terms.
type BusinessInfo struct {
	LeadTimeDays int      `json:"leadTimeDays" validate:"gte=0"`
	MinimumOrder float64  `json:"minimumOrder" validate:"gte=0"`
	PaymentTerms string   `json:"paymentTerms,omitempty" validate:"omitempty,oneof=cod net-7 net-15 net-30 net-60 prepaid"`
	DeliveryDays []string `json:"deliveryDays,omitempty" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Notes        string   `json:"notes,omitempty"`
}

// Supplier is a vendor that owns inventory items.
type Supplier struct {
	ID        string         `json:"id"`
	Name      string         `json:"name" validate:"required"`
	Contact   Contact        `json:"contact"`
	Business  BusinessInfo   `json:"business"`
	Status    SupplierStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Pricing carries per-unit and per-case cost.
type Pricing struct {
	UnitCost  float64 `json:"unitCost"`
	CasePrice float64 `json:"casePrice"`
}

// Item is a tracked stock line owned by one supplier.
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SupplierID    string    `json:"supplierId"`
	OnHandQty     int       `json:"onHandQty"`
	OrderQuantity int       `json:"orderQuantity"`
	UOM           string    `json:"uom"`
	CaseQty       int       `json:"caseQty"`
	FixCount      int       `json:"fixCount"`
	ToBuild       int       `json:"toBuild"`
	Pricing       Pricing   `json:"pricing"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Status classifies the item's on-hand quantity.
func (i Item) Status() StockStatus {
	return Classify(i.OnHandQty)
}

// Unit returns the unit of measure, defaulting to pieces.
func (i Item) Unit() string {
	if i.UOM == "" {
		return DefaultUOM
	}
	return i.UOM
}

// Document is the persisted layout of the whole store.
type Document struct {
	Suppliers map[string]Supplier `json:"suppliers"`
	Inventory []Item              `json:"inventory"`
}

var (
	// ErrSupplierNotFound is returned when a supplier id does not resolve.
	ErrSupplierNotFound = fmt.Errorf("inventory: supplier %w", shared.ErrNotFound)
	// ErrItemNotFound is returned when an item id does not resolve.
	ErrItemNotFound = fmt.Errorf("inventory: item %w", shared.ErrNotFound)
	// ErrSupplierExists is returned when adding a supplier whose id is taken.
	ErrSupplierExists = fmt.Errorf("inventory: supplier already exists: %w", shared.ErrConflict)
	// ErrUnknownField is returned by UpdateItem for fields it does not manage.
	ErrUnknownField = fmt.Errorf("inventory: unknown item field: %w", shared.ErrValidation)
	// ErrReadOnlyField is returned by UpdateItem for fields edited elsewhere.
	ErrReadOnlyField = fmt.Errorf("inventory: field is read-only: %w", shared.ErrValidation)
	// ErrNameRequired is returned for blank item names.
	ErrNameRequired = fmt.Errorf("inventory: name required: %w", shared.ErrValidation)
	// ErrUnknownPreset is returned for unsupported quick filters.
	ErrUnknownPreset = fmt.Errorf("inventory: unknown preset: %w", shared.ErrValidation)
	// ErrInvalidCriteria flags filter input that cannot be evaluated.
	ErrInvalidCriteria = errors.New("inventory: invalid filter criteria")
)
