package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/internal/analytics/domain"
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
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
		&billingdomain.Invoice{},
		&billingdomain.InvoiceItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
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

func (f *fixture) addProduct(t *testing.T, name string, stock, threshold int64) productdomain.Product {
	t.Helper()
	product := productdomain.Product{
		ID:                f.genID.Generate().Int64(),
		OrgID:             f.orgID,
		SKU:               fmt.Sprintf("SKU-%d", f.genID.Generate().Int64()),
		Name:              name,
		UnitPrice:         decimal.NewFromInt(10),
		Stock:             stock,
		LowStockThreshold: threshold,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}
	require.NoError(t, f.db.Create(&product).Error)
	return product
}

func (f *fixture) addInvoice(t *testing.T, total string, method string, date time.Time, lines map[int64]int64) {
	t.Helper()
	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)

	invoice := billingdomain.Invoice{
		ID:            f.genID.Generate().Int64(),
		OrgID:         f.orgID,
		InvoiceNumber: fmt.Sprintf("INV-TEST-%d", f.genID.Generate().Int64()),
		PaymentMethod: method,
		TotalAmount:   amount,
		InvoiceDate:   date,
		CreatedAt:     date,
	}
	require.NoError(t, f.db.Create(&invoice).Error)

	position := 0
	for productID, qty := range lines {
		item := billingdomain.InvoiceItem{
			ID:        f.genID.Generate().Int64(),
			OrgID:     f.orgID,
			InvoiceID: invoice.ID,
			ProductID: productID,
			Position:  position,
			Quantity:  qty,
			UnitPrice: decimal.NewFromInt(10),
			CreatedAt: date,
		}
		require.NoError(t, f.db.Create(&item).Error)
		position++
	}
}

func TestSummary_Empty(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.Summary(f.ctx)
	require.NoError(t, err)

	assert.True(t, summary.TotalRevenue.IsZero())
	assert.True(t, summary.GrowthPercent.IsZero())
	assert.Zero(t, summary.InvoiceCount)
	assert.Empty(t, summary.RevenueByMonth)
	assert.Empty(t, summary.StockAlerts)
}

func TestSummary_RevenueAndGrowth(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Widget", 100, 10)

	february := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	march := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	f.addInvoice(t, "100.00", "Cash", february, map[int64]int64{product.ID: 2})
	f.addInvoice(t, "150.00", "Card", march, map[int64]int64{product.ID: 3})
	f.addInvoice(t, "50.00", "Cash", march, map[int64]int64{product.ID: 1})

	summary, err := f.svc.Summary(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.InvoiceCount)
	assert.Equal(t, "300", summary.TotalRevenue.String())
	assert.Equal(t, "200", summary.CurrentMonthRevenue.String())
	// (200 - 100) / 100 = 100% growth.
	assert.Equal(t, "100", summary.GrowthPercent.String())
	assert.Equal(t, "100", summary.AverageSale.String())

	require.Len(t, summary.RevenueByMonth, 2)
	assert.Equal(t, "Feb 2026", summary.RevenueByMonth[0].Month)
	assert.Equal(t, "Mar 2026", summary.RevenueByMonth[1].Month)
	assert.Equal(t, "200", summary.RevenueByMonth[1].Revenue.String())

	require.Len(t, summary.PaymentMethods, 2)
	assert.Equal(t, "Card", summary.PaymentMethods[0].Method)
	assert.Equal(t, int64(1), summary.PaymentMethods[0].Count)
	assert.Equal(t, "Cash", summary.PaymentMethods[1].Method)
	assert.Equal(t, int64(2), summary.PaymentMethods[1].Count)
}

func TestSummary_GrowthWithoutBaseline(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Widget", 100, 10)
	f.addInvoice(t, "80.00", "Cash", testNow, map[int64]int64{product.ID: 1})

	summary, err := f.svc.Summary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", summary.GrowthPercent.String())
}

func TestSummary_TopProductsAndAlerts(t *testing.T) {
	f := newFixture(t)
	bestseller := f.addProduct(t, "Bestseller", 200, 10)
	slow := f.addProduct(t, "Slow Mover", 50, 10)
	f.addProduct(t, "Gone", 0, 10)
	f.addProduct(t, "Nearly Gone", 3, 10)
	hot := f.addProduct(t, "Hot Item", 5, 1)

	f.addInvoice(t, "500.00", "Cash", testNow, map[int64]int64{
		bestseller.ID: 40,
		slow.ID:       2,
		hot.ID:        30,
	})

	summary, err := f.svc.Summary(f.ctx)
	require.NoError(t, err)

	require.NotEmpty(t, summary.TopProducts)
	assert.Equal(t, "Bestseller", summary.TopProducts[0].Name)
	assert.Equal(t, int64(40), summary.TopProducts[0].UnitsSold)

	levels := map[string]domain.AlertLevel{}
	for _, alert := range summary.StockAlerts {
		levels[alert.Product] = alert.Level
	}
	assert.Equal(t, domain.AlertDanger, levels["Gone"])
	assert.Equal(t, domain.AlertWarning, levels["Nearly Gone"])
	// 5 stock * 30 days / 30 sold = 5 days left, under the 7-day horizon.
	assert.Equal(t, domain.AlertInfo, levels["Hot Item"])
	assert.NotContains(t, levels, "Slow Mover")
}

func TestSummary_ScopedToOrg(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, "Widget", 100, 10)
	f.addInvoice(t, "100.00", "Cash", testNow, map[int64]int64{product.ID: 1})

	otherOrg := orgcontext.WithOrgID(context.Background(), f.genID.Generate().Int64())
	summary, err := f.svc.Summary(otherOrg)
	require.NoError(t, err)
	assert.True(t, summary.TotalRevenue.IsZero())
	assert.Zero(t, summary.InvoiceCount)
}

func TestSummary_MissingOrg(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Summary(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
