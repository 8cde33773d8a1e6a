package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"triton-orders/internal/ledger"
	"triton-orders/internal/models"
	"triton-orders/internal/stats"
	"triton-orders/internal/util"

	"go.uber.org/zap"
)

// orderNumberPrefix matches the business key format customers already see
// on their receipts.
const orderNumberPrefix = "TRI-"

// OrderService orchestrates the ledger and stats stores into the external
// order lifecycle: create (pending), complete, query.
type OrderService struct {
	ledger *ledger.Store
	stats  *stats.Store
	logger *zap.Logger

	mu         sync.Mutex
	lastIssued int64
}

// NewOrderService creates a new order service.
func NewOrderService(ledgerStore *ledger.Store, statsStore *stats.Store) *OrderService {
	return &OrderService{
		ledger: ledgerStore,
		stats:  statsStore,
		logger: util.GetLogger(),
	}
}

// CreateOrderRequest mirrors the checkout form payload.
type CreateOrderRequest struct {
	OrderSummary OrderSummary      `json:"orderSummary" binding:"required"`
	Items        []LineItemRequest `json:"items" binding:"required,min=1"`
}

// OrderSummary carries the customer-facing fields of the checkout form.
// The wire keys are the column titles the front-end has always sent.
type OrderSummary struct {
	OrderNumber         string `json:"Order Number"`
	DateTime            string `json:"Date & Time"`
	CustomerName        string `json:"Customer Name"`
	Phone               string `json:"Phone"`
	Email               string `json:"Email"`
	OrderType           string `json:"Order Type"`
	DeliveryAddress     string `json:"Delivery Address"`
	SpecialInstructions string `json:"Special Instructions"`
}

// LineItemRequest is one cart entry. Price is in whole rupees. The
// client-declared subtotal is ignored and recomputed server-side.
type LineItemRequest struct {
	ItemName string `json:"Item Name"`
	Category string `json:"Category"`
	Price    int64  `json:"Price (₹)"`
	Quantity int    `json:"Quantity"`
	Subtotal int64  `json:"Subtotal (₹)"`
}

// CreateOrder validates the request, recomputes the total from the
// submitted line items, appends the order to the ledger and then records
// it in the stats aggregate. The ledger write comes first: if it fails the
// stats document is left untouched.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return "", err
	}

	now := time.Now()
	order := s.buildOrder(req, now)

	appendStart := time.Now()
	row, err := s.ledger.Append(ctx, order)
	util.LedgerAppendLatency.Observe(time.Since(appendStart).Seconds())
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("ledger_write").Inc()
		return "", fmt.Errorf("failed to append order to ledger: %w", err)
	}
	order.RowNumber = row

	statsStart := time.Now()
	err = s.stats.RecordCreated(*order)
	util.StatsWriteLatency.Observe(time.Since(statsStart).Seconds())
	if err != nil {
		// Ledger has the order, stats does not. Known inconsistency
		// window; recover with the stats rebuild tool.
		util.OrdersFailedTotal.WithLabelValues("stats_write").Inc()
		s.logger.Error("Stats update failed after ledger append; stores have diverged",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return "", fmt.Errorf("failed to record order stats: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	util.OrderValue.Observe(float64(order.Total))
	s.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total),
		zap.String("order_type", order.OrderType))

	return order.OrderNumber, nil
}

// CompleteOrder applies the one-way pending to completed transition: looks
// the order up in the pending set, updates its ledger row, then removes it
// from the pending set. A second call for the same number fails with the
// not-found error.
func (s *OrderService) CompleteOrder(ctx context.Context, orderNumber string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CompleteOrder")
	defer span.End()

	order, err := s.stats.FindPending(orderNumber)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if err := s.ledger.UpdateStatus(ctx, order.RowNumber, orderNumber, models.StatusCompleted); err != nil {
		util.OrdersFailedTotal.WithLabelValues("ledger_write").Inc()
		return fmt.Errorf("failed to update ledger status: %w", err)
	}

	if _, err := s.stats.RecordCompleted(orderNumber); err != nil {
		util.OrdersFailedTotal.WithLabelValues("stats_write").Inc()
		return fmt.Errorf("failed to record completion: %w", err)
	}

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed", zap.String("order_number", orderNumber))
	return nil
}

// ListPending returns all pending orders in creation order.
func (s *OrderService) ListPending(ctx context.Context) []models.Order {
	_, span := util.StartSpan(ctx, "OrderService.ListPending")
	defer span.End()
	return s.stats.Pending()
}

// Recent returns up to n orders, newest first.
func (s *OrderService) Recent(ctx context.Context, n int) []models.Order {
	_, span := util.StartSpan(ctx, "OrderService.Recent")
	defer span.End()
	return s.stats.Recent(n)
}

// Stats returns the dashboard summary.
func (s *OrderService) Stats(ctx context.Context) stats.Summary {
	_, span := util.StartSpan(ctx, "OrderService.Stats")
	defer span.End()
	return s.stats.Snapshot(time.Now())
}

// ExportAll returns the whole ledger workbook for download.
func (s *OrderService) ExportAll(ctx context.Context) ([]byte, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ExportAll")
	defer span.End()
	return s.ledger.ExportSnapshot(ctx)
}

// RebuildStats replays the ledger and replaces the stats aggregate with
// the recomputed one. Manual repair for the ledger-ahead-of-stats window.
func (s *OrderService) RebuildStats(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "OrderService.RebuildStats")
	defer span.End()

	rows, err := s.ledger.Replay(ctx)
	if err != nil {
		return fmt.Errorf("failed to replay ledger: %w", err)
	}

	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		// Replayed rows recover only what the ledger columns hold.
		createdAt, _ := time.ParseInLocation(ledger.DateLayout, r.Date, time.Local)
		orders = append(orders, models.Order{
			OrderNumber: r.OrderNumber,
			CreatedAt:   createdAt,
			Date:        r.Date,
			Total:       r.Total,
			Status:      r.Status,
			RowNumber:   r.RowNumber,
		})
	}
	return s.stats.Rebuild(orders)
}

// buildOrder assembles the server-side order snapshot: trusted fields come
// from the request, everything derived (number, timestamps, subtotals,
// total, status) is computed here.
func (s *OrderService) buildOrder(req *CreateOrderRequest, now time.Time) *models.Order {
	items := make([]models.LineItem, 0, len(req.Items))
	var total int64
	for _, it := range req.Items {
		subtotal := it.Price * int64(it.Quantity)
		items = append(items, models.LineItem{
			Name:     it.ItemName,
			Category: it.Category,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: subtotal,
		})
		total += subtotal
	}

	return &models.Order{
		OrderNumber:         s.nextOrderNumber(now),
		CreatedAt:           now,
		Date:                now.Format(ledger.DateLayout),
		CustomerName:        strings.TrimSpace(req.OrderSummary.CustomerName),
		Phone:               strings.TrimSpace(req.OrderSummary.Phone),
		Email:               valueOr(req.OrderSummary.Email, models.NoEmail),
		OrderType:           strings.ToLower(strings.TrimSpace(req.OrderSummary.OrderType)),
		DeliveryAddress:     valueOr(req.OrderSummary.DeliveryAddress, models.NoAddress),
		Items:               items,
		SpecialInstructions: valueOr(req.OrderSummary.SpecialInstructions, models.NoInstructions),
		Total:               total,
		Status:              models.StatusPending,
	}
}

// nextOrderNumber derives the business key from the creation time, bumping
// by one millisecond when two creations land on the same instant so the
// sequence stays unique and monotonic within the process.
func (s *OrderService) nextOrderNumber(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= s.lastIssued {
		ms = s.lastIssued + 1
	}
	s.lastIssued = ms
	return orderNumberPrefix + strconv.FormatInt(ms, 10)
}

func validateRequest(req *CreateOrderRequest) error {
	if strings.TrimSpace(req.OrderSummary.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", models.ErrValidation)
	}
	if strings.TrimSpace(req.OrderSummary.Phone) == "" {
		return fmt.Errorf("%w: phone is required", models.ErrValidation)
	}

	orderType := strings.ToLower(strings.TrimSpace(req.OrderSummary.OrderType))
	switch orderType {
	case models.OrderTypePickup:
	case models.OrderTypeDelivery:
		addr := strings.TrimSpace(req.OrderSummary.DeliveryAddress)
		if addr == "" || addr == models.NoAddress {
			return fmt.Errorf("%w: delivery address is required for delivery orders", models.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: order type must be pickup or delivery", models.ErrValidation)
	}

	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", models.ErrValidation)
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ItemName) == "" {
			return fmt.Errorf("%w: item name is required", models.ErrValidation)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: item price must not be negative", models.ErrValidation)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", models.ErrValidation)
		}
	}
	return nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
