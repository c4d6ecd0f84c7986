package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Available(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		want bool
	}{
		{
			name: "inactive never available",
			p:    Product{Active: false, Inventory: Inventory{TrackInventory: false}},
			want: false,
		},
		{
			name: "untracked inventory always available",
			p:    Product{Active: true, Inventory: Inventory{TrackInventory: false}},
			want: true,
		},
		{
			name: "tracked with stock",
			p:    Product{Active: true, Inventory: Inventory{TrackInventory: true, Count: 3}},
			want: true,
		},
		{
			name: "tracked out of stock",
			p:    Product{Active: true, Inventory: Inventory{TrackInventory: true, Count: 0}},
			want: false,
		},
		{
			name: "tracked out of stock with backorder",
			p:    Product{Active: true, Inventory: Inventory{TrackInventory: true, Count: 0, AllowBackorder: true}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Available())
		})
	}
}

func TestProduct_UnitPrice(t *testing.T) {
	p := Product{
		ID:    "p1",
		Price: decimal.RequireFromString("10.00"),
		Variants: []Variant{
			{ID: "v1", SKU: "SKU-1", Price: decimal.RequireFromString("12.50")},
		},
	}

	price, err := p.UnitPrice("")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(price))

	price, err = p.UnitPrice("v1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.50").Equal(price))

	_, err = p.UnitPrice("missing")
	require.ErrorIs(t, err, ErrVariantNotFound)
}

func TestProduct_AvailableQuantity(t *testing.T) {
	p := Product{
		ID:        "p1",
		Inventory: Inventory{TrackInventory: true, Count: 7},
		Variants:  []Variant{{ID: "v1", InventoryCount: 2}},
	}

	qty, bounded := p.AvailableQuantity("")
	assert.True(t, bounded)
	assert.Equal(t, 7, qty)

	qty, bounded = p.AvailableQuantity("v1")
	assert.True(t, bounded)
	assert.Equal(t, 2, qty)

	p.Inventory.AllowBackorder = true
	_, bounded = p.AvailableQuantity("")
	assert.False(t, bounded)

	p.Inventory = Inventory{TrackInventory: false}
	_, bounded = p.AvailableQuantity("")
	assert.False(t, bounded)
}

func TestProduct_PrimaryImage(t *testing.T) {
	p := Product{Images: []Image{
		{URL: "a.jpg"},
		{URL: "b.jpg", Primary: true},
	}}
	assert.Equal(t, "b.jpg", p.PrimaryImage())

	p.Images = []Image{{URL: "a.jpg"}}
	assert.Equal(t, "a.jpg", p.PrimaryImage())

	p.Images = nil
	assert.Equal(t, "", p.PrimaryImage())
}
