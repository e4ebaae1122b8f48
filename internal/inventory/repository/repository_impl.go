package repository

import (
	"context"

	"github.com/smallbiznis/ledgerly/internal/inventory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, log *domain.StockLog) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO inventory_logs (id, org_id, product_id, delta, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.OrgID,
		log.ProductID,
		log.Delta,
		log.Reason,
		log.CreatedAt,
	).Error
}

func (r *repo) ListByProduct(ctx context.Context, db *gorm.DB, orgID, productID int64) ([]domain.StockLog, error) {
	var items []domain.StockLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, delta, reason, created_at
		 FROM inventory_logs
		 WHERE org_id = ? AND product_id = ?
		 ORDER BY created_at DESC`,
		orgID,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
