package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/inventory/seed"
)

func kinds(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

func TestDecodeDocumentQuarantinesBadRecords(t *testing.T) {
	payload := []byte(`{
		"suppliers": {
			"s1": {"id": "other", "name": "Stale Id Co"},
			"s2": "not an object"
		},
		"inventory": [
			{"id": "a", "name": "Good", "supplierId": "s1", "onHandQty": 4},
			{"id": "", "name": "Blank", "supplierId": "s1"},
			{"id": "a", "name": "Dup", "supplierId": "s1"},
			{"id": "b", "name": "Bad qty", "onHandQty": "lots"},
			{"id": "c", "name": "Negative", "supplierId": "s1", "onHandQty": -2, "caseQty": 0, "pricing": {"unitCost": -1}},
			{"id": "d", "name": "Orphan", "supplierId": "zzz"},
			"not an item"
		]
	}`)
	snap, diags, err := DecodeDocument(payload)
	require.NoError(t, err)

	require.ElementsMatch(t,
		[]string{DiagMalformed, DiagMalformed, DiagMissingID, DiagDuplicateID, DiagClamped, DiagOrphan, DiagClamped, DiagOrphan},
		kinds(diags))

	sup, ok := snap.Supplier("s1")
	require.True(t, ok)
	require.Equal(t, "s1", sup.ID)
	require.Equal(t, SupplierActive, sup.Status)
	_, ok = snap.Supplier("s2")
	require.False(t, ok)

	require.Equal(t, []string{"a", "b", "c", "d"}, ids(snap.Items()))
	unreadable, _ := snap.Item("b")
	require.Zero(t, unreadable.OnHandQty)
	good, _ := snap.Item("a")
	require.Equal(t, "Good", good.Name)
	require.Equal(t, DefaultUOM, good.UOM)
	require.Equal(t, 1, good.CaseQty)
	neg, _ := snap.Item("c")
	require.Zero(t, neg.OnHandQty)
	require.Zero(t, neg.Pricing.UnitCost)

	// orphans stay stored but never reach a view
	require.Equal(t, []string{"a", "c"}, ids(Filter(snap, Criteria{}).Items()))
}

func TestDecodeDocumentReadsLooseFields(t *testing.T) {
	payload := []byte(`{
		"suppliers": {
			"s1": {"name": "Dated", "createdAt": "2024-01-15", "updatedAt": "last tuesday",
				"business": {"leadTimeDays": "3", "minimumOrder": 150.5}}
		},
		"inventory": [
			{"id": "a", "name": "Whole", "supplierId": "s1", "onHandQty": 4, "lastUpdated": "2024-02-01T10:00:00Z"},
			{"id": "b", "name": "Half", "supplierId": "s1", "onHandQty": 2.5, "fixCount": "10", "pricing": {"unitCost": "1.25"}},
			{"id": 7, "name": "Numbered", "supplierId": "s1", "lastUpdated": "2024-02-01 08:30:00"}
		]
	}`)
	snap, diags, err := DecodeDocument(payload)
	require.NoError(t, err)

	require.Len(t, diags, 2)
	for _, d := range diags {
		require.Equal(t, DiagClamped, d.Kind)
		require.False(t, d.Dropped)
	}
	require.Contains(t, diags[0].Detail, "updatedAt")
	require.Contains(t, diags[1].Detail, "onHandQty")

	sup, ok := snap.Supplier("s1")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), sup.CreatedAt)
	require.True(t, sup.UpdatedAt.IsZero())
	require.Equal(t, 3, sup.Business.LeadTimeDays)
	require.Equal(t, 150.5, sup.Business.MinimumOrder)

	half, ok := snap.Item("b")
	require.True(t, ok)
	require.Equal(t, 2, half.OnHandQty)
	require.Equal(t, 10, half.FixCount)
	require.Equal(t, 1.25, half.Pricing.UnitCost)

	numbered, ok := snap.Item("7")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC), numbered.LastUpdated)

	// every record stays visible under its supplier
	require.Equal(t, []string{"a", "b", "7"}, ids(Filter(snap, Criteria{}).Items()))
}

func TestDecodeDocumentRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "[]", "null", "{}", `{"other": 1}`, "{not json"} {
		_, _, err := DecodeDocument([]byte(payload))
		require.ErrorIs(t, err, ErrMalformedDocument, "payload %q", payload)
	}
}

func TestNormalizeKeepsCleanDocument(t *testing.T) {
	snap, diags := Normalize(fixture().Document())
	require.Len(t, diags, 1)
	require.Equal(t, DiagOrphan, diags[0].Kind)
	require.Equal(t, "i4", diags[0].ID)
	require.False(t, diags[0].Dropped)
	require.Len(t, snap.Items(), 5)
	require.Contains(t, diags[0].String(), "kept item")
}

func TestSeedDatasetIsClean(t *testing.T) {
	snap, diags, err := DecodeDocument(seed.Default())
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Equal(t, 3, snap.SupplierCount())
	require.NotEmpty(t, snap.Items())
	for _, item := range snap.Items() {
		require.Equal(t, ReorderQuantity(item.FixCount, item.OnHandQty), item.OrderQuantity, item.ID)
	}
}
