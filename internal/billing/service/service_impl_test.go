package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/ledgerly/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/ledgerly/internal/inventory/repository"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/pricing"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDay = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   billingdomain.Service
	genID *snowflake.Node
	orgID int64
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&productdomain.Product{},
		&customerdomain.Customer{},
		&billingdomain.Invoice{},
		&billingdomain.InvoiceItem{},
		&inventorydomain.StockLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(testDay),
		InventoryLog: inventoryrepo.Provide(),
	})

	orgID := node.Generate().Int64()
	return &fixture{
		db:    conn,
		svc:   svc,
		genID: node,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func (f *fixture) addProduct(t *testing.T, name, price, taxRate string, stock int64) productdomain.Product {
	t.Helper()
	product := productdomain.Product{
		ID:        f.genID.Generate().Int64(),
		OrgID:     f.orgID,
		SKU:       fmt.Sprintf("SKU-%d", f.genID.Generate().Int64()),
		Name:      name,
		UnitPrice: mustDec(t, price),
		TaxRate:   mustDec(t, taxRate),
		Stock:     stock,
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	require.NoError(t, f.db.Create(&product).Error)
	return product
}

func (f *fixture) addCustomer(t *testing.T, name string) customerdomain.Customer {
	t.Helper()
	customer := customerdomain.Customer{
		ID:        f.genID.Generate().Int64(),
		OrgID:     f.orgID,
		Name:      name,
		Email:     "billing@example.com",
		Contact:   "555-0100",
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	require.NoError(t, f.db.Create(&customer).Error)
	return customer
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, f.db.Raw(
		`SELECT stock FROM products WHERE org_id = ? AND id = ?`,
		f.orgID, productID,
	).Scan(&stock).Error)
	return stock
}

func (f *fixture) stockLogs(t *testing.T, productID int64) []inventorydomain.StockLog {
	t.Helper()
	logs, err := inventoryrepo.Provide().ListByProduct(context.Background(), f.db, f.orgID, productID)
	require.NoError(t, err)
	return logs
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, mustDec(t, want).Equal(got), "want %s, got %s", want, got.String())
}

func idString(id int64) string { return snowflake.ID(id).String() }

func TestCreateInvoice_FlatDiscount(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Standing Desk", "100.00", "18", 10)
	customer := f.addCustomer(t, "Acme Interiors")

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		CustomerID: idString(customer.ID),
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 2},
		},
		DiscountKind:  "flat",
		DiscountValue: mustDec(t, "36"),
	})
	require.NoError(t, err)

	// 2 x 100 = 200, tax 18% = 36, gross 236, minus flat 36 = 200.
	assertDec(t, "200.00", resp.TotalAmount)
	require.Len(t, resp.Items, 1)
	assertDec(t, "200.00", resp.Items[0].Subtotal)
	assertDec(t, "36.00", resp.Items[0].TaxAmount)
	assertDec(t, "236.00", resp.Items[0].LineTotal)
	assert.Equal(t, "INV-20260314-001", resp.InvoiceNumber)
	assert.Equal(t, "Cash", resp.PaymentMethod)

	require.NotNil(t, resp.CustomerSnapshot)
	assert.Equal(t, "Acme Interiors", resp.CustomerSnapshot.Name)

	assert.Equal(t, int64(8), f.stock(t, product.ID))

	logs := f.stockLogs(t, product.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(-2), logs[0].Delta)
	assert.Equal(t, "Sale: INV-20260314-001", logs[0].Reason)
}

func TestCreateInvoice_PercentageOverHundredRejected(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Mug", "10.00", "0", 5)

	_, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
		DiscountKind:  "percentage",
		DiscountValue: mustDec(t, "110"),
	})
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)

	// Rejection rolls back the stock decrement.
	assert.Equal(t, int64(5), f.stock(t, product.ID))
	assert.Empty(t, f.stockLogs(t, product.ID))
}

func TestCreateInvoice_SequencePerDay(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Notebook", "5.00", "0", 100)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
			Items: []billingdomain.LineItemRequest{
				{ProductID: idString(product.ID), Quantity: 1},
			},
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-20260314-003", resp.InvoiceNumber)

	// A different day restarts the sequence.
	nextDay := testDay.AddDate(0, 0, 1)
	resp, err = f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
		Date: &nextDay,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-20260315-001", resp.InvoiceNumber)
}

func TestCreateInvoice_InsufficientStockRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t)
	first := f.addProduct(t, "Chair", "50.00", "0", 10)
	second := f.addProduct(t, "Lamp", "20.00", "0", 1)

	_, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(first.ID), Quantity: 4},
			{ProductID: idString(second.ID), Quantity: 3},
		},
	})
	require.ErrorIs(t, err, billingdomain.ErrInsufficientStock)

	var stockErr *billingdomain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.Available)
	assert.Equal(t, int64(3), stockErr.Requested)

	// The first line's decrement must not survive the rollback.
	assert.Equal(t, int64(10), f.stock(t, first.ID))
	assert.Equal(t, int64(1), f.stock(t, second.ID))

	var invoices int64
	require.NoError(t, f.db.Model(&billingdomain.Invoice{}).Where("org_id = ?", f.orgID).Count(&invoices).Error)
	assert.Zero(t, invoices)
}

func TestCreateInvoice_StockExhaustion(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Limited Print", "75.00", "0", 10)

	req := billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 6},
		},
	}

	_, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, req)
	require.ErrorIs(t, err, billingdomain.ErrInsufficientStock)

	assert.Equal(t, int64(4), f.stock(t, product.ID))
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Pen", "2.00", "0", 5)

	tests := []struct {
		name string
		req  billingdomain.CreateInvoiceRequest
		want error
	}{
		{
			name: "empty items",
			req:  billingdomain.CreateInvoiceRequest{},
			want: billingdomain.ErrEmptyItems,
		},
		{
			name: "zero quantity",
			req: billingdomain.CreateInvoiceRequest{
				Items: []billingdomain.LineItemRequest{
					{ProductID: idString(product.ID), Quantity: 0},
				},
			},
			want: billingdomain.ErrInvalidQuantity,
		},
		{
			name: "negative quantity",
			req: billingdomain.CreateInvoiceRequest{
				Items: []billingdomain.LineItemRequest{
					{ProductID: idString(product.ID), Quantity: -1},
				},
			},
			want: billingdomain.ErrInvalidQuantity,
		},
		{
			name: "unknown product",
			req: billingdomain.CreateInvoiceRequest{
				Items: []billingdomain.LineItemRequest{
					{ProductID: idString(f.genID.Generate().Int64()), Quantity: 1},
				},
			},
			want: billingdomain.ErrProductNotFound,
		},
		{
			name: "unknown customer",
			req: billingdomain.CreateInvoiceRequest{
				CustomerID: idString(f.genID.Generate().Int64()),
				Items: []billingdomain.LineItemRequest{
					{ProductID: idString(product.ID), Quantity: 1},
				},
			},
			want: billingdomain.ErrCustomerNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, int64(5), f.stock(t, product.ID))
}

func TestCreateInvoice_DuplicateNumber(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Poster", "15.00", "0", 10)

	req := billingdomain.CreateInvoiceRequest{
		InvoiceNumber: "INV-CUSTOM-1",
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	}

	_, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, req)
	require.ErrorIs(t, err, billingdomain.ErrDuplicateInvoiceNumber)

	// Only the committed sale moved stock.
	assert.Equal(t, int64(9), f.stock(t, product.ID))
}

func TestCreateInvoice_SnapshotFrozenAfterCustomerChange(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Cable", "8.00", "0", 10)
	customer := f.addCustomer(t, "Original Name")

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		CustomerID: idString(customer.ID),
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`DELETE FROM customers WHERE org_id = ? AND id = ?`,
		f.orgID, customer.ID,
	).Error)

	got, err := f.svc.Get(f.ctx, resp.InvoiceNumber)
	require.NoError(t, err)
	require.NotNil(t, got.CustomerSnapshot)
	assert.Equal(t, "Original Name", got.CustomerSnapshot.Name)
}

func TestCreateInvoice_ItemSnapshotFrozenAfterPriceChange(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Keyboard", "40.00", "10", 10)

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`UPDATE products SET unit_price = ?, name = ? WHERE org_id = ? AND id = ?`,
		mustDec(t, "99.00"), "Keyboard v2", f.orgID, product.ID,
	).Error)

	got, err := f.svc.Get(f.ctx, resp.InvoiceNumber)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Keyboard", got.Items[0].Name)
	assertDec(t, "40.00", got.Items[0].UnitPrice)
	assertDec(t, "44.00", got.Items[0].LineTotal)
}

func TestVoid_RestoresStock(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Monitor", "120.00", "18", 10)

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), f.stock(t, product.ID))

	require.NoError(t, f.svc.Void(f.ctx, resp.InvoiceNumber))
	assert.Equal(t, int64(10), f.stock(t, product.ID))

	logs := f.stockLogs(t, product.ID)
	require.Len(t, logs, 2)
	deltas := []int64{logs[0].Delta, logs[1].Delta}
	assert.ElementsMatch(t, []int64{-3, 3}, deltas)

	_, err = f.svc.Get(f.ctx, resp.InvoiceNumber)
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceNotFound)

	// A second void finds nothing to reverse.
	err = f.svc.Void(f.ctx, resp.InvoiceNumber)
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceNotFound)
}

func TestVoid_ByID(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Webcam", "60.00", "0", 5)

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Void(f.ctx, resp.ID))
	assert.Equal(t, int64(5), f.stock(t, product.ID))
}

func TestVoid_SkipsDeletedProduct(t *testing.T) {
	f := newFixture(t)
	kept := f.addProduct(t, "Desk Mat", "25.00", "0", 10)
	removed := f.addProduct(t, "Discontinued Stand", "30.00", "0", 10)

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(kept.ID), Quantity: 2},
			{ProductID: idString(removed.ID), Quantity: 4},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`DELETE FROM products WHERE org_id = ? AND id = ?`,
		f.orgID, removed.ID,
	).Error)

	require.NoError(t, f.svc.Void(f.ctx, resp.InvoiceNumber))

	// Surviving product restored, missing one skipped without failing the void.
	assert.Equal(t, int64(10), f.stock(t, kept.ID))
	_, err = f.svc.Get(f.ctx, resp.InvoiceNumber)
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceNotFound)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Router", "90.00", "11", 20)
	customer := f.addCustomer(t, "Northwind")

	first, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		CustomerID: idString(customer.ID),
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 2},
		},
	})
	require.NoError(t, err)

	all, err := f.svc.List(f.ctx, billingdomain.ListInvoiceRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCustomer, err := f.svc.List(f.ctx, billingdomain.ListInvoiceRequest{
		CustomerID: idString(customer.ID),
	})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, first.InvoiceNumber, byCustomer[0].InvoiceNumber)

	got, err := f.svc.Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceNumber, got.InvoiceNumber)
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Safe", "200.00", "0", 3)

	resp, err := f.svc.Create(f.ctx, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	require.NoError(t, err)

	otherOrg := orgcontext.WithOrgID(context.Background(), f.genID.Generate().Int64())

	_, err = f.svc.Get(otherOrg, resp.InvoiceNumber)
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceNotFound)

	err = f.svc.Void(otherOrg, resp.InvoiceNumber)
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceNotFound)

	_, err = f.svc.Create(otherOrg, billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{
			{ProductID: idString(product.ID), Quantity: 1},
		},
	})
	assert.True(t, errors.Is(err, billingdomain.ErrProductNotFound))
}

func TestCreateInvoice_MissingOrg(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), billingdomain.CreateInvoiceRequest{
		Items: []billingdomain.LineItemRequest{{ProductID: "1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidOrganization)
}
