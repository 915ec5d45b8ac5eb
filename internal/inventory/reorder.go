package inventory

// ReorderSignal is handed to the auto-order collaborator whenever an on-hand
// update leaves an item below its fix count.
type ReorderSignal struct {
	SupplierID string `json:"supplierId"`
	ItemID     string `json:"itemId"`
	Quantity   int    `json:"quantity"`
}

// ReorderQuantity returns how many units bring onHand back up to fixCount.
func ReorderQuantity(fixCount, onHand int) int {
	if fixCount < 0 {
		fixCount = 0
	}
	if qty := fixCount - onHand; qty > 0 {
		return qty
	}
	return 0
}

func reorderSignal(item Item) *ReorderSignal {
	if item.OrderQuantity <= 0 {
		return nil
	}
	return &ReorderSignal{SupplierID: item.SupplierID, ItemID: item.ID, Quantity: item.OrderQuantity}
}
