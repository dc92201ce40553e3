package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.createProduct(t, "Laptop", 50, "900")

	sell := func(qty int, price, date string) {
		_, err := f.sales.RecordSale(ctx, &RecordSaleRequest{
			ProductID:    laptop.ID,
			QuantitySold: qty,
			SalePrice:    money(price),
			SaleDate:     date,
		}, f.staff)
		require.NoError(t, err)
	}
	sell(1, "900", "2024-05-01T10:00:00Z")
	sell(2, "850", "2024-05-01T15:30:00Z")
	sell(1, "100", "2024-05-03T09:00:00Z")

	stats, err := f.reports.DailySales(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2024-05-03", stats[0].Date)
	assert.EqualValues(t, 1, stats[0].TotalSales)
	assert.Equal(t, "100", stats[0].Revenue.String())

	assert.Equal(t, "2024-05-01", stats[1].Date)
	assert.EqualValues(t, 2, stats[1].TotalSales)
	assert.Equal(t, "2600", stats[1].Revenue.String())
	assert.Equal(t, "1300", stats[1].AvgSaleValue.String())

	limited, err := f.reports.DailySales(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "2024-05-03", limited[0].Date)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	laptop := f.createProduct(t, "Laptop", 12, "900")
	f.createProduct(t, "Cable", 2, "5")

	_, err := f.sales.RecordSale(ctx, &RecordSaleRequest{ProductID: laptop.ID, QuantitySold: 5, SalePrice: money("900")}, f.staff)
	require.NoError(t, err)

	stats, err := f.reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProducts)
	// laptop 7 and cable 2 are both at or under the default reorder level of 10
	assert.EqualValues(t, 2, stats.LowStockCount)
	assert.Equal(t, "6310", stats.TotalValuation.String())
	assert.Equal(t, "4500", stats.TotalRevenue.String())
	assert.EqualValues(t, 1, stats.TotalSales)
}
