package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type ListRequest struct {
	Name     string
	SKU      string
	LowStock bool
	SortBy   string
	OrderBy  string
}

type CreateRequest struct {
	SKU               string           `json:"sku"`
	Name              string           `json:"name"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	Stock             *int64           `json:"stock"`
	LowStockThreshold *int64           `json:"low_stock_threshold"`
	Metadata          map[string]any   `json:"metadata"`
}

type UpdateRequest struct {
	ID                string           `json:"-"`
	SKU               *string          `json:"sku"`
	Name              *string          `json:"name"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	Stock             *int64           `json:"stock"`
	LowStockThreshold *int64           `json:"low_stock_threshold"`
	Metadata          map[string]any   `json:"metadata"`
}

type Response struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organization_id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	Stock             int64           `json:"stock"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSKU          = errors.New("invalid_sku")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidStock        = errors.New("invalid_stock")
	ErrInvalidID           = errors.New("invalid_id")
	ErrDuplicateSKU        = errors.New("duplicate_sku")
	ErrNotFound            = errors.New("not_found")
)
