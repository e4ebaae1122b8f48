package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	// Create runs the invoice transaction: validates the order against live
	// inventory, locks and decrements stock, prices the snapshot and
	// persists the invoice as one atomic unit.
	Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error)
	// Void reverses a committed invoice's stock effects and removes it,
	// also atomically. idOrNumber matches the invoice id or its number.
	Void(ctx context.Context, idOrNumber string) error
	List(ctx context.Context, req ListInvoiceRequest) ([]InvoiceResponse, error)
	Get(ctx context.Context, idOrNumber string) (*InvoiceResponse, error)
}

// LineItemRequest is one product+quantity line of a create request. Any
// caller-supplied price or tax is an untrusted display hint; snapshots are
// always derived from the locked product row.
type LineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CreateInvoiceRequest struct {
	InvoiceNumber string            `json:"invoice_number"`
	CustomerID    string            `json:"customer_id"`
	Items         []LineItemRequest `json:"items"`
	DiscountKind  string            `json:"discount_kind"`
	DiscountValue decimal.Decimal   `json:"discount_value"`
	PaymentMethod string            `json:"payment_method"`
	Date          *time.Time        `json:"date"`
}

type ListInvoiceRequest struct {
	CustomerID    string
	InvoiceNumber string
	From          *time.Time
	To            *time.Time
}

// ItemSnapshot is the durable line-item contract other tooling depends on.
type ItemSnapshot struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type InvoiceResponse struct {
	ID               string            `json:"id"`
	OrganizationID   string            `json:"organization_id"`
	InvoiceNumber    string            `json:"invoice_number"`
	CustomerID       *string           `json:"customer_id,omitempty"`
	CustomerSnapshot *CustomerSnapshot `json:"customer_snapshot,omitempty"`
	Items            []ItemSnapshot    `json:"items"`
	DiscountKind     string            `json:"discount_kind,omitempty"`
	DiscountValue    decimal.Decimal   `json:"discount_value"`
	PaymentMethod    string            `json:"payment_method"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	InvoiceDate      time.Time         `json:"invoice_date"`
	CreatedAt        time.Time         `json:"created_at"`
}
