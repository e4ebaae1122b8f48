// Package domain contains persistence models for billing. An invoice is an
// immutable ledger entry: its item rows are snapshots captured at the moment
// of sale and its total is always the pricing engine's output for those
// snapshots plus the stored discount. Corrections are modeled as void +
// recreate, never in-place edits.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Invoice is one committed sale.
type Invoice struct {
	ID            int64   `json:"id" gorm:"primaryKey"`
	OrgID         int64   `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_invoices_org_number,priority:1"`
	InvoiceNumber string  `json:"invoice_number" gorm:"type:text;not null;uniqueIndex:ux_invoices_org_number,priority:2"`
	CustomerID    *int64  `json:"customer_id,omitempty" gorm:"index"`
	// CustomerSnapshot freezes the customer's display fields at creation
	// time so deleting the customer later cannot corrupt history.
	CustomerSnapshot datatypes.JSON  `json:"customer_snapshot,omitempty" gorm:"type:jsonb"`
	DiscountKind     string          `json:"discount_kind" gorm:"type:text;not null;default:''"`
	DiscountValue    decimal.Decimal `json:"discount_value" gorm:"type:numeric;not null;default:0"`
	PaymentMethod    string          `json:"payment_method" gorm:"type:text;not null;default:'Cash'"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric;not null"`
	InvoiceDate      time.Time       `json:"invoice_date" gorm:"not null;index"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one frozen line of an invoice. Position preserves input
// order for display.
type InvoiceItem struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	OrgID     int64           `json:"organization_id" gorm:"column:org_id;not null;index"`
	InvoiceID int64           `json:"invoice_id" gorm:"not null;index"`
	ProductID int64           `json:"product_id" gorm:"not null;index"`
	Position  int             `json:"position" gorm:"not null"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	SKU       string          `json:"sku" gorm:"column:sku;type:text;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric;not null"`
	TaxRate   decimal.Decimal `json:"tax_rate" gorm:"type:numeric;not null"`
	Quantity  int64           `json:"quantity" gorm:"not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric;not null"`
	TaxAmount decimal.Decimal `json:"tax_amount" gorm:"type:numeric;not null"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:numeric;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// CustomerSnapshot is the frozen copy persisted into Invoice.CustomerSnapshot.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}
