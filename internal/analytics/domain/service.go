package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidOrganization = errors.New("invalid_organization")

// MonthRevenue is one bucket of the revenue-by-month series, oldest first.
type MonthRevenue struct {
	Month   string          `json:"month"` // "Jan 2026"
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	Name      string `json:"name"`
	UnitsSold int64  `json:"units_sold"`
}

type PaymentMethodCount struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

// AlertLevel orders stock alerts by urgency.
type AlertLevel string

const (
	AlertDanger  AlertLevel = "danger"
	AlertWarning AlertLevel = "warning"
	AlertInfo    AlertLevel = "info"
)

type StockAlert struct {
	Level   AlertLevel `json:"level"`
	Product string     `json:"product"`
	Message string     `json:"message"`
}

type Summary struct {
	TotalRevenue        decimal.Decimal      `json:"total_revenue"`
	CurrentMonthRevenue decimal.Decimal      `json:"current_month_revenue"`
	GrowthPercent       decimal.Decimal      `json:"growth_percent"`
	InvoiceCount        int64                `json:"invoice_count"`
	AverageSale         decimal.Decimal      `json:"average_sale"`
	RevenueByMonth      []MonthRevenue       `json:"revenue_by_month"`
	TopProducts         []ProductSales       `json:"top_products"`
	PaymentMethods      []PaymentMethodCount `json:"payment_methods"`
	StockAlerts         []StockAlert         `json:"stock_alerts"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}
