package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product is a sellable item. Stock is mutated only by restock adjustments
// here and by the billing coordinators; it never goes negative (schema CHECK
// plus a guarded decrement).
type Product struct {
	ID                int64             `json:"id" gorm:"primaryKey"`
	OrgID             int64             `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_products_org_sku,priority:1"`
	SKU               string            `json:"sku" gorm:"column:sku;type:text;not null;uniqueIndex:ux_products_org_sku,priority:2"`
	Name              string            `json:"name" gorm:"type:text;not null"`
	UnitPrice         decimal.Decimal   `json:"unit_price" gorm:"type:numeric;not null"`
	TaxRate           decimal.Decimal   `json:"tax_rate" gorm:"type:numeric;not null"`
	Stock             int64             `json:"stock" gorm:"not null;default:0"`
	LowStockThreshold int64             `json:"low_stock_threshold" gorm:"not null;default:10"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
