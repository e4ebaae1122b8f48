package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StockLog is one append-only stock movement. Sales write negative deltas,
// voids and restocks positive ones; the reason references the invoice number
// so movements can be traced back to the ledger entry.
type StockLog struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	OrgID     int64     `json:"organization_id" gorm:"column:org_id;not null;index"`
	ProductID int64     `json:"product_id" gorm:"not null;index"`
	Delta     int64     `json:"delta" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StockLog) TableName() string { return "inventory_logs" }

type Repository interface {
	// Insert appends a movement using the caller's transaction handle so the
	// log row commits or rolls back with the stock mutation it records.
	Insert(ctx context.Context, tx *gorm.DB, log *StockLog) error
	ListByProduct(ctx context.Context, db *gorm.DB, orgID, productID int64) ([]StockLog, error)
}
