package orders

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// InventoryAdapter adapts inventory.Service to the Catalog required by the
// order service.
type InventoryAdapter struct {
	service *inventory.Service
}

// NewInventoryAdapter creates a new inventory adapter
func NewInventoryAdapter(service *inventory.Service) *InventoryAdapter {
	return &InventoryAdapter{service: service}
}

// Bind attaches the inventory service after construction. The inventory
// service takes the order service as its trigger, so one side has to be
// wired late.
func (a *InventoryAdapter) Bind(service *inventory.Service) {
	a.service = service
}

// Supplier resolves supplier ordering terms.
func (a *InventoryAdapter) Supplier(_ context.Context, id string) (CatalogSupplier, error) {
	if a.service == nil {
		return CatalogSupplier{}, fmt.Errorf("inventory service not initialized")
	}
	sup, err := a.service.Supplier(id)
	if err != nil {
		return CatalogSupplier{}, err
	}
	return CatalogSupplier{ID: sup.ID, Name: sup.Name, LeadTimeDays: sup.Business.LeadTimeDays}, nil
}

// Item resolves an item with its current stock.
func (a *InventoryAdapter) Item(_ context.Context, id string) (CatalogItem, error) {
	if a.service == nil {
		return CatalogItem{}, fmt.Errorf("inventory service not initialized")
	}
	item, err := a.service.Item(id)
	if err != nil {
		return CatalogItem{}, err
	}
	return CatalogItem{
		ID:         item.ID,
		Name:       item.Name,
		SupplierID: item.SupplierID,
		UnitCost:   item.Pricing.UnitCost,
		OnHandQty:  item.OnHandQty,
	}, nil
}
