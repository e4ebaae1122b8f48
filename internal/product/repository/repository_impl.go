package repository

import (
	"context"

	"github.com/smallbiznis/ledgerly/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, org_id, sku, name, unit_price, tax_rate, stock, low_stock_threshold, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.OrgID,
		product.SKU,
		product.Name,
		product.UnitPrice,
		product.TaxRate,
		product.Stock,
		product.LowStockThreshold,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, sku, name, unit_price, tax_rate, stock, low_stock_threshold, metadata, created_at, updated_at
		 FROM products WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID int64, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("org_id = ?", orgID)

	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.SKU != "" {
		stmt = stmt.Where("sku = ?", filter.SKU)
	}
	if filter.LowStock {
		stmt = stmt.Where("stock <= low_stock_threshold")
	}

	sortBy := filter.SortBy
	switch sortBy {
	case "created_at", "updated_at", "name", "stock":
	default:
		sortBy = "created_at"
	}
	order := "ASC"
	if filter.OrderBy == "desc" {
		order = "DESC"
	}
	stmt = stmt.Order(sortBy + " " + order)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET sku = ?, name = ?, unit_price = ?, tax_rate = ?, stock = ?, low_stock_threshold = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		product.SKU,
		product.Name,
		product.UnitPrice,
		product.TaxRate,
		product.Stock,
		product.LowStockThreshold,
		product.Metadata,
		product.UpdatedAt,
		product.OrgID,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM products WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
