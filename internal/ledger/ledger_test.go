package ledger

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"triton-orders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "orders.xlsx"))
	require.NoError(t, store.Initialize())
	return store
}

func testOrder(n int) *models.Order {
	now := time.Now()
	return &models.Order{
		OrderNumber:     fmt.Sprintf("TRI-%d", 1700000000000+n),
		CreatedAt:       now,
		Date:            now.Format(DateLayout),
		CustomerName:    fmt.Sprintf("Customer %d", n),
		Phone:           "9876543210",
		Email:           models.NoEmail,
		OrderType:       models.OrderTypePickup,
		DeliveryAddress: models.NoAddress,
		Items: []models.LineItem{
			{Name: "Falafel", Category: "Starters", Price: 250, Quantity: 2, Subtotal: 500},
		},
		SpecialInstructions: models.NoInstructions,
		Total:               500,
		Status:              models.StatusPending,
	}
}

func TestInitializeIdempotent(t *testing.T) {
	store := newTestStore(t)

	row, err := store.Append(context.Background(), testOrder(1))
	require.NoError(t, err)

	// A second initialize must not recreate the workbook.
	require.NoError(t, store.Initialize())

	rows, err := store.Replay(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row, rows[0].RowNumber)
}

func TestAppendAssignsSequentialRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, testOrder(1))
	require.NoError(t, err)
	second, err := store.Append(ctx, testOrder(2))
	require.NoError(t, err)

	assert.Equal(t, firstDataRow, first)
	assert.Equal(t, firstDataRow+1, second)
}

func TestAppendPreservesExistingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testOrder(1)
	b := testOrder(2)
	_, err := store.Append(ctx, a)
	require.NoError(t, err)
	_, err = store.Append(ctx, b)
	require.NoError(t, err)

	rows, err := store.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.OrderNumber, rows[0].OrderNumber)
	assert.Equal(t, b.OrderNumber, rows[1].OrderNumber)
	assert.Equal(t, a.Total, rows[0].Total)
}

func TestUpdateStatusByHandle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := testOrder(1)
	row, err := store.Append(ctx, order)
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, row, order.OrderNumber, models.StatusCompleted))

	rows, err := store.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusCompleted, rows[0].Status)
}

func TestUpdateStatusScanFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testOrder(1)
	b := testOrder(2)
	_, err := store.Append(ctx, a)
	require.NoError(t, err)
	_, err = store.Append(ctx, b)
	require.NoError(t, err)

	// A stale handle must fall back to the order-number scan.
	require.NoError(t, store.UpdateStatus(ctx, 0, b.OrderNumber, models.StatusCompleted))

	rows, err := store.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rows[0].Status)
	assert.Equal(t, models.StatusCompleted, rows[1].Status)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, testOrder(1))
	require.NoError(t, err)

	err = store.UpdateStatus(ctx, 99, "TRI-does-not-exist", models.StatusCompleted)
	assert.ErrorIs(t, err, models.ErrRowNotFound)
}

func TestUpdateStatusLeavesOtherColumnsUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := testOrder(1)
	row, err := store.Append(ctx, order)
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, row, order.OrderNumber, models.StatusCompleted))

	f, err := excelize.OpenFile(store.Path())
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(sheetName, fmt.Sprintf("C%d", row))
	require.NoError(t, err)
	assert.Equal(t, order.CustomerName, name)

	items, err := f.GetCellValue(sheetName, fmt.Sprintf("H%d", row))
	require.NoError(t, err)
	assert.Equal(t, order.ItemsText(), items)
}

func TestExportSnapshotBeforeInitialize(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "orders.xlsx"))

	_, err := store.ExportSnapshot(context.Background())
	assert.ErrorIs(t, err, models.ErrRowNotFound)
}

func TestExportSnapshotAfterCreatesAndCompletions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	orders := make([]*models.Order, 0, 3)
	for i := 1; i <= 3; i++ {
		o := testOrder(i)
		row, err := store.Append(ctx, o)
		require.NoError(t, err)
		o.RowNumber = row
		orders = append(orders, o)
	}
	require.NoError(t, store.UpdateStatus(ctx, orders[1].RowNumber, orders[1].OrderNumber, models.StatusCompleted))

	data, err := store.ExportSnapshot(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, headerRow+3)

	completed := 0
	for i := firstDataRow - 1; i < len(rows); i++ {
		require.Equal(t, orders[i-firstDataRow+1].OrderNumber, rows[i][0])
		if rows[i][10] == "COMPLETED" {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}
