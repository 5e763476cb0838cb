package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/order"
)

func TestProducts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Products(&buf, []models.Product{
		{ID: 3, Name: "Lamp", Category: "home", Price: decimal.RequireFromString("250.00")},
	})
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Products", sheet.Name)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].Value)
	assert.Equal(t, "3", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "Lamp", sheet.Rows[1].Cells[1].Value)

	price, err := sheet.Rows[1].Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 250.0, price, 0.001)
}

func TestOrders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Orders(&buf, []order.Summary{{
		ID:         9,
		UserID:     2,
		UserName:   "Ada",
		Subtotal:   decimal.RequireFromString("450"),
		Shipping:   decimal.RequireFromString("500"),
		Tax:        decimal.RequireFromString("81"),
		GrandTotal: decimal.RequireFromString("1031"),
		Status:     "Paid",
		OrderDate:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	row := f.Sheets[0].Rows[1]
	assert.Equal(t, "9", row.Cells[0].Value)
	assert.Equal(t, "Ada", row.Cells[2].Value)
	assert.Equal(t, "Paid", row.Cells[7].Value)
	assert.Equal(t, "2024-05-01 10:00:00", row.Cells[8].Value)

	grand, err := row.Cells[6].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1031.0, grand, 0.001)
}
