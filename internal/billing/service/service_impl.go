package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/ledgerly/internal/inventory/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/pricing"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	InventoryLog inventorydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	inventoryLog inventorydomain.Repository
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billing.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		inventoryLog: p.InventoryLog,
	}
}

// Create executes the invoice transaction. Every step runs inside one
// database transaction: concurrent creators touching the same product
// serialize on its row lock, and any failure rolls back all stock
// decrements, log rows and the invoice itself.
func (s *Service) Create(ctx context.Context, req billingdomain.CreateInvoiceRequest) (*billingdomain.InvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, billingdomain.ErrInvalidOrganization
	}

	if len(req.Items) == 0 {
		return nil, billingdomain.ErrEmptyItems
	}

	var customerID *snowflake.ID
	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, billingdomain.ErrInvalidID
		}
		customerID = &parsed
	}

	discount := pricing.Discount{
		Kind:  pricing.DiscountKind(strings.TrimSpace(req.DiscountKind)),
		Value: req.DiscountValue,
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "Cash"
	}

	invoiceDate := s.clock.Now()
	if req.Date != nil {
		invoiceDate = req.Date.UTC()
	}

	var (
		invoice  billingdomain.Invoice
		items    []billingdomain.InvoiceItem
		snapshot *billingdomain.CustomerSnapshot
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customerJSON []byte
		if customerID != nil {
			customer, err := s.loadCustomer(ctx, tx, orgID.Int64(), customerID.Int64())
			if err != nil {
				return err
			}
			if customer == nil {
				return billingdomain.ErrCustomerNotFound
			}
			snapshot = &billingdomain.CustomerSnapshot{
				Name:    customer.Name,
				Email:   customer.Email,
				Contact: customer.Contact,
				Address: customer.Address,
				TaxID:   customer.TaxID,
			}
			customerJSON, err = json.Marshal(snapshot)
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		lines := make([]pricing.LineInput, 0, len(req.Items))
		items = make([]billingdomain.InvoiceItem, 0, len(req.Items))

		for position, line := range req.Items {
			productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
			if err != nil {
				return billingdomain.ErrInvalidID
			}

			product, err := s.loadProductForUpdate(ctx, tx, orgID.Int64(), productID.Int64())
			if err != nil {
				return err
			}
			if product == nil {
				return &billingdomain.ProductNotFoundError{ProductID: productID}
			}
			if line.Quantity <= 0 {
				return &billingdomain.InvalidQuantityError{ProductID: productID, Quantity: line.Quantity}
			}
			if line.Quantity > product.Stock {
				return &billingdomain.InsufficientStockError{
					ProductID: productID,
					Available: product.Stock,
					Requested: line.Quantity,
				}
			}

			// Decrement while the row lock is held. The stock >= qty guard is
			// a second line of defense for dialects without FOR UPDATE: a
			// lost race shows up as zero affected rows instead of negative
			// stock.
			result := tx.WithContext(ctx).Exec(
				`UPDATE products
				 SET stock = stock - ?, updated_at = ?
				 WHERE org_id = ? AND id = ? AND stock >= ?`,
				line.Quantity,
				now,
				orgID.Int64(),
				productID.Int64(),
				line.Quantity,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return &billingdomain.InsufficientStockError{
					ProductID: productID,
					Available: product.Stock,
					Requested: line.Quantity,
				}
			}

			lines = append(lines, pricing.LineInput{
				UnitPrice: product.UnitPrice,
				TaxRate:   product.TaxRate,
				Quantity:  line.Quantity,
			})
			items = append(items, billingdomain.InvoiceItem{
				ID:        s.genID.Generate().Int64(),
				OrgID:     orgID.Int64(),
				ProductID: productID.Int64(),
				Position:  position,
				Name:      product.Name,
				SKU:       product.SKU,
				UnitPrice: product.UnitPrice,
				TaxRate:   product.TaxRate,
				Quantity:  line.Quantity,
				CreatedAt: now,
			})
		}

		result, err := pricing.Compute(lines, discount)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Subtotal = result.Lines[i].Subtotal
			items[i].TaxAmount = result.Lines[i].TaxAmount
			items[i].LineTotal = result.Lines[i].LineTotal
		}

		number := strings.TrimSpace(req.InvoiceNumber)
		if number == "" {
			number, err = s.nextInvoiceNumber(ctx, tx, orgID.Int64(), invoiceDate)
			if err != nil {
				return err
			}
		}

		invoice = billingdomain.Invoice{
			ID:               s.genID.Generate().Int64(),
			OrgID:            orgID.Int64(),
			InvoiceNumber:    number,
			CustomerSnapshot: customerJSON,
			DiscountKind:     string(discount.Kind),
			DiscountValue:    discount.Value.Round(2),
			PaymentMethod:    paymentMethod,
			TotalAmount:      result.FinalTotal,
			InvoiceDate:      invoiceDate,
			CreatedAt:        now,
		}
		if customerID != nil {
			id := customerID.Int64()
			invoice.CustomerID = &id
		}

		if err := s.insertInvoice(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return billingdomain.ErrDuplicateInvoiceNumber
			}
			return err
		}

		for i := range items {
			items[i].InvoiceID = invoice.ID
			if err := s.insertInvoiceItem(ctx, tx, &items[i]); err != nil {
				return err
			}
			if err := s.inventoryLog.Insert(ctx, tx, &inventorydomain.StockLog{
				ID:        s.genID.Generate().Int64(),
				OrgID:     orgID.Int64(),
				ProductID: items[i].ProductID,
				Delta:     -items[i].Quantity,
				Reason:    fmt.Sprintf("Sale: %s", invoice.InvoiceNumber),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total_amount", invoice.TotalAmount.String()),
		zap.Int("items", len(items)),
	)

	resp := s.toResponse(&invoice, items, snapshot)
	return &resp, nil
}

// Void reverses a committed invoice: stock is restored per stored snapshot
// quantity and the invoice row is deleted, all in one transaction. A product
// deleted since the sale is skipped with a warning; the bookkeeping side of
// the void still completes. Voiding the same invoice twice fails with
// ErrInvoiceNotFound because the first void removed the row.
func (s *Service) Void(ctx context.Context, idOrNumber string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return billingdomain.ErrInvalidOrganization
	}

	idOrNumber = strings.TrimSpace(idOrNumber)
	if idOrNumber == "" {
		return billingdomain.ErrInvalidID
	}

	var voided billingdomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, orgID.Int64(), idOrNumber)
		if err != nil {
			return err
		}
		if invoice == nil {
			return billingdomain.ErrInvoiceNotFound
		}

		items, err := s.listInvoiceItems(ctx, tx, invoice.OrgID, invoice.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			// Only product id and quantity are trusted; the product may have
			// been edited or renamed since the sale.
			result := tx.WithContext(ctx).Exec(
				`UPDATE products
				 SET stock = stock + ?, updated_at = ?
				 WHERE org_id = ? AND id = ?`,
				item.Quantity,
				now,
				invoice.OrgID,
				item.ProductID,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				s.log.Warn("product missing during void, stock restore skipped",
					zap.String("org_id", orgID.String()),
					zap.String("invoice_number", invoice.InvoiceNumber),
					zap.String("product_id", snowflake.ID(item.ProductID).String()),
				)
				continue
			}
			if err := s.inventoryLog.Insert(ctx, tx, &inventorydomain.StockLog{
				ID:        s.genID.Generate().Int64(),
				OrgID:     invoice.OrgID,
				ProductID: item.ProductID,
				Delta:     item.Quantity,
				Reason:    fmt.Sprintf("Void: %s", invoice.InvoiceNumber),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM invoice_items WHERE org_id = ? AND invoice_id = ?`,
			invoice.OrgID,
			invoice.ID,
		).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM invoices WHERE org_id = ? AND id = ?`,
			invoice.OrgID,
			invoice.ID,
		).Error; err != nil {
			return err
		}

		voided = *invoice
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice voided",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_number", voided.InvoiceNumber),
	)
	return nil
}

func (s *Service) List(ctx context.Context, req billingdomain.ListInvoiceRequest) ([]billingdomain.InvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, billingdomain.ErrInvalidOrganization
	}

	stmt := s.db.WithContext(ctx).
		Model(&billingdomain.Invoice{}).
		Where("org_id = ?", orgID.Int64())

	if trimmed := strings.TrimSpace(req.CustomerID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, billingdomain.ErrInvalidID
		}
		stmt = stmt.Where("customer_id = ?", parsed.Int64())
	}
	if trimmed := strings.TrimSpace(req.InvoiceNumber); trimmed != "" {
		stmt = stmt.Where("invoice_number = ?", trimmed)
	}
	if req.From != nil {
		stmt = stmt.Where("invoice_date >= ?", req.From.UTC())
	}
	if req.To != nil {
		stmt = stmt.Where("invoice_date <= ?", req.To.UTC())
	}

	var invoices []billingdomain.Invoice
	if err := stmt.Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}

	resp := make([]billingdomain.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items, err := s.listInvoiceItems(ctx, s.db, invoices[i].OrgID, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		resp = append(resp, s.toResponse(&invoices[i], items, nil))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, idOrNumber string) (*billingdomain.InvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, billingdomain.ErrInvalidOrganization
	}

	invoice, err := s.findInvoice(ctx, s.db, orgID.Int64(), strings.TrimSpace(idOrNumber))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, billingdomain.ErrInvoiceNotFound
	}

	items, err := s.listInvoiceItems(ctx, s.db, invoice.OrgID, invoice.ID)
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(invoice, items, nil)
	return &resp, nil
}

// nextInvoiceNumber derives INV-<YYYYMMDD>-<seq> from a transactional count
// of the org's invoices dated the same day. Counting inside the transaction
// (instead of an in-process counter) keeps numbering correct across multiple
// server processes; a rare same-instant collision is caught by the unique
// index and surfaces as ErrDuplicateInvoiceNumber.
func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB, orgID int64, date time.Time) (string, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM invoices
		 WHERE org_id = ? AND invoice_date >= ? AND invoice_date < ?`,
		orgID,
		dayStart,
		dayEnd,
	).Scan(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("INV-%s-%03d", dayStart.Format("20060102"), count+1), nil
}

func (s *Service) loadCustomer(ctx context.Context, tx *gorm.DB, orgID, id int64) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := tx.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, contact, address, tax_id
		 FROM customers
		 WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (s *Service) loadProductForUpdate(ctx context.Context, tx *gorm.DB, orgID, id int64) (*productdomain.Product, error) {
	var product productdomain.Product
	err := tx.WithContext(ctx).Raw(
		`SELECT id, org_id, sku, name, unit_price, tax_rate, stock, low_stock_threshold
		 FROM products
		 WHERE org_id = ? AND id = ?`+db.LockSuffix(tx),
		orgID,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, orgID int64, idOrNumber string) (*billingdomain.Invoice, error) {
	var id int64
	if parsed, err := snowflake.ParseString(idOrNumber); err == nil {
		id = parsed.Int64()
	}

	var invoice billingdomain.Invoice
	err := tx.WithContext(ctx).Raw(
		`SELECT id, org_id, invoice_number, customer_id, customer_snapshot,
		        discount_kind, discount_value, payment_method, total_amount,
		        invoice_date, created_at
		 FROM invoices
		 WHERE org_id = ? AND (id = ? OR invoice_number = ?)`+db.LockSuffix(tx),
		orgID,
		id,
		idOrNumber,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) findInvoice(ctx context.Context, conn *gorm.DB, orgID int64, idOrNumber string) (*billingdomain.Invoice, error) {
	var id int64
	if parsed, err := snowflake.ParseString(idOrNumber); err == nil {
		id = parsed.Int64()
	}

	var invoice billingdomain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT id, org_id, invoice_number, customer_id, customer_snapshot,
		        discount_kind, discount_value, payment_method, total_amount,
		        invoice_date, created_at
		 FROM invoices
		 WHERE org_id = ? AND (id = ? OR invoice_number = ?)`,
		orgID,
		id,
		idOrNumber,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (s *Service) listInvoiceItems(ctx context.Context, conn *gorm.DB, orgID, invoiceID int64) ([]billingdomain.InvoiceItem, error) {
	var items []billingdomain.InvoiceItem
	err := conn.WithContext(ctx).Raw(
		`SELECT id, org_id, invoice_id, product_id, position, name, sku,
		        unit_price, tax_rate, quantity, subtotal, tax_amount, line_total, created_at
		 FROM invoice_items
		 WHERE org_id = ? AND invoice_id = ?
		 ORDER BY position ASC`,
		orgID,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) insertInvoice(ctx context.Context, tx *gorm.DB, invoice *billingdomain.Invoice) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, org_id, invoice_number, customer_id, customer_snapshot,
			discount_kind, discount_value, payment_method, total_amount,
			invoice_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OrgID,
		invoice.InvoiceNumber,
		invoice.CustomerID,
		invoice.CustomerSnapshot,
		invoice.DiscountKind,
		invoice.DiscountValue,
		invoice.PaymentMethod,
		invoice.TotalAmount,
		invoice.InvoiceDate,
		invoice.CreatedAt,
	).Error
}

func (s *Service) insertInvoiceItem(ctx context.Context, tx *gorm.DB, item *billingdomain.InvoiceItem) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoice_items (
			id, org_id, invoice_id, product_id, position, name, sku,
			unit_price, tax_rate, quantity, subtotal, tax_amount, line_total, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OrgID,
		item.InvoiceID,
		item.ProductID,
		item.Position,
		item.Name,
		item.SKU,
		item.UnitPrice,
		item.TaxRate,
		item.Quantity,
		item.Subtotal,
		item.TaxAmount,
		item.LineTotal,
		item.CreatedAt,
	).Error
}

func (s *Service) toResponse(invoice *billingdomain.Invoice, items []billingdomain.InvoiceItem, snapshot *billingdomain.CustomerSnapshot) billingdomain.InvoiceResponse {
	resp := billingdomain.InvoiceResponse{
		ID:             snowflake.ID(invoice.ID).String(),
		OrganizationID: snowflake.ID(invoice.OrgID).String(),
		InvoiceNumber:  invoice.InvoiceNumber,
		DiscountKind:   invoice.DiscountKind,
		DiscountValue:  invoice.DiscountValue,
		PaymentMethod:  invoice.PaymentMethod,
		TotalAmount:    invoice.TotalAmount,
		InvoiceDate:    invoice.InvoiceDate,
		CreatedAt:      invoice.CreatedAt,
		Items:          make([]billingdomain.ItemSnapshot, 0, len(items)),
	}
	if invoice.CustomerID != nil {
		id := snowflake.ID(*invoice.CustomerID).String()
		resp.CustomerID = &id
	}
	if snapshot != nil {
		resp.CustomerSnapshot = snapshot
	} else if len(invoice.CustomerSnapshot) > 0 {
		var stored billingdomain.CustomerSnapshot
		if err := json.Unmarshal(invoice.CustomerSnapshot, &stored); err == nil {
			resp.CustomerSnapshot = &stored
		}
	}
	for _, item := range items {
		resp.Items = append(resp.Items, billingdomain.ItemSnapshot{
			ProductID: snowflake.ID(item.ProductID).String(),
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice,
			TaxRate:   item.TaxRate,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
			TaxAmount: item.TaxAmount,
			LineTotal: item.LineTotal,
		})
	}
	return resp
}
