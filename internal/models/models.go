package models

import (
	"fmt"
	"strings"
	"time"
)

// Order statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Order types
const (
	OrderTypePickup   = "pickup"
	OrderTypeDelivery = "delivery"
)

// Placeholder values written when optional fields are absent
const (
	NoEmail        = "N/A"
	NoAddress      = "N/A"
	NoInstructions = "None"
)

// LineItem represents a single menu item within an order
type LineItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

// Order represents a customer order as persisted in the stats document.
// RowNumber is the handle into the ledger workbook recorded at append time.
type Order struct {
	OrderNumber         string     `json:"orderNumber"`
	CreatedAt           time.Time  `json:"createdAt"`
	Date                string     `json:"date"`
	CustomerName        string     `json:"customerName"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email"`
	OrderType           string     `json:"orderType"`
	DeliveryAddress     string     `json:"deliveryAddress"`
	Items               []LineItem `json:"items"`
	SpecialInstructions string     `json:"specialInstructions"`
	Total               int64      `json:"total"`
	Status              string     `json:"status"`
	RowNumber           int        `json:"rowNumber"`
}

// ItemsText renders the line items the way the ledger's Items Ordered
// column stores them, one item per line.
func (o *Order) ItemsText() string {
	lines := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, fmt.Sprintf("%s (%s) - Qty: %d × ₹%d = ₹%d",
			item.Name, item.Category, item.Quantity, item.Price, item.Subtotal))
	}
	return strings.Join(lines, "\n")
}

// IsPending reports whether the order still awaits completion.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}
