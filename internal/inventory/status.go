package inventory

// Classify maps an on-hand quantity to its stock status. Negative quantities
// are treated as out of stock.
func Classify(onHandQty int) StockStatus {
	switch {
	case onHandQty <= 0:
		return StatusOut
	case onHandQty <= 5:
		return StatusLow
	case onHandQty <= 20:
		return StatusMedium
	default:
		return StatusGood
	}
}
