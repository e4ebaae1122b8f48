package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/internal/analytics/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxMonthBuckets = 6
	maxTopProducts  = 5
	maxStockAlerts  = 5

	// Burn rate is units sold over a trailing 30-day window.
	burnRateWindowDays = 30
	stockoutHorizon    = 7
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		clock: p.Clock,
	}
}

type invoiceRow struct {
	ID            int64
	TotalAmount   decimal.Decimal
	PaymentMethod string
	InvoiceDate   time.Time
}

type productRow struct {
	ID                int64
	Name              string
	Stock             int64
	LowStockThreshold int64
}

type unitsRow struct {
	ProductID int64
	Units     int64
}

// Summary aggregates the org's invoices and products in process. The row
// fetches are narrow; month bucketing and growth math stay portable across
// dialects this way.
func (s *Service) Summary(ctx context.Context) (*domain.Summary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	conn := s.db.WithContext(ctx)

	var invoices []invoiceRow
	err := conn.Raw(
		`SELECT id, total_amount, payment_method, invoice_date
		 FROM invoices WHERE org_id = ?
		 ORDER BY invoice_date ASC`,
		orgID.Int64(),
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}

	var products []productRow
	err = conn.Raw(
		`SELECT id, name, stock, low_stock_threshold
		 FROM products WHERE org_id = ?
		 ORDER BY name ASC`,
		orgID.Int64(),
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}

	var units []unitsRow
	err = conn.Raw(
		`SELECT product_id, SUM(quantity) AS units
		 FROM invoice_items WHERE org_id = ?
		 GROUP BY product_id`,
		orgID.Int64(),
	).Scan(&units).Error
	if err != nil {
		return nil, err
	}
	unitsByProduct := make(map[int64]int64, len(units))
	for _, row := range units {
		unitsByProduct[row.ProductID] = row.Units
	}

	now := s.clock.Now()
	summary := &domain.Summary{
		InvoiceCount:   int64(len(invoices)),
		RevenueByMonth: []domain.MonthRevenue{},
		TopProducts:    []domain.ProductSales{},
		PaymentMethods: []domain.PaymentMethodCount{},
		StockAlerts:    []domain.StockAlert{},
	}

	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previousMonth := currentMonth.AddDate(0, -1, 0)

	monthRevenue := make(map[time.Time]decimal.Decimal)
	paymentCounts := make(map[string]int64)
	var total, currentRev, previousRev decimal.Decimal

	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount)

		bucket := time.Date(inv.InvoiceDate.Year(), inv.InvoiceDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthRevenue[bucket] = monthRevenue[bucket].Add(inv.TotalAmount)

		if bucket.Equal(currentMonth) {
			currentRev = currentRev.Add(inv.TotalAmount)
		} else if bucket.Equal(previousMonth) {
			previousRev = previousRev.Add(inv.TotalAmount)
		}

		method := inv.PaymentMethod
		if method == "" {
			method = "Unknown"
		}
		paymentCounts[method]++
	}

	summary.TotalRevenue = total.Round(2)
	summary.CurrentMonthRevenue = currentRev.Round(2)
	summary.GrowthPercent = growthPercent(currentRev, previousRev)
	if len(invoices) > 0 {
		summary.AverageSale = total.Div(decimal.NewFromInt(int64(len(invoices)))).Round(2)
	}

	buckets := make([]time.Time, 0, len(monthRevenue))
	for bucket := range monthRevenue {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })
	if len(buckets) > maxMonthBuckets {
		buckets = buckets[len(buckets)-maxMonthBuckets:]
	}
	for _, bucket := range buckets {
		summary.RevenueByMonth = append(summary.RevenueByMonth, domain.MonthRevenue{
			Month:   bucket.Format("Jan 2006"),
			Revenue: monthRevenue[bucket].Round(2),
		})
	}

	methods := make([]string, 0, len(paymentCounts))
	for method := range paymentCounts {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		summary.PaymentMethods = append(summary.PaymentMethods, domain.PaymentMethodCount{
			Method: method,
			Count:  paymentCounts[method],
		})
	}

	sales := make([]domain.ProductSales, 0, len(products))
	for _, product := range products {
		sales = append(sales, domain.ProductSales{
			Name:      product.Name,
			UnitsSold: unitsByProduct[product.ID],
		})

		if alert, ok := stockAlert(product, unitsByProduct[product.ID]); ok {
			summary.StockAlerts = append(summary.StockAlerts, alert)
		}
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].UnitsSold > sales[j].UnitsSold })
	if len(sales) > maxTopProducts {
		sales = sales[:maxTopProducts]
	}
	summary.TopProducts = sales

	if len(summary.StockAlerts) > maxStockAlerts {
		summary.StockAlerts = summary.StockAlerts[:maxStockAlerts]
	}

	return summary, nil
}

// growthPercent is month-over-month revenue growth. No prior-month baseline
// means 100% when the current month has any revenue, otherwise 0.
func growthPercent(current, previous decimal.Decimal) decimal.Decimal {
	switch {
	case previous.IsPositive():
		return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
	case current.IsPositive():
		return decimal.NewFromInt(100)
	default:
		return decimal.Zero
	}
}

func stockAlert(product productRow, unitsSold int64) (domain.StockAlert, bool) {
	switch {
	case product.Stock == 0:
		return domain.StockAlert{
			Level:   domain.AlertDanger,
			Product: product.Name,
			Message: fmt.Sprintf("%s is out of stock", product.Name),
		}, true
	case product.Stock <= product.LowStockThreshold:
		return domain.StockAlert{
			Level:   domain.AlertWarning,
			Product: product.Name,
			Message: fmt.Sprintf("%s is low on stock (%d left)", product.Name, product.Stock),
		}, true
	}

	if unitsSold > 0 {
		daysLeft := product.Stock * burnRateWindowDays / unitsSold
		if daysLeft < stockoutHorizon {
			return domain.StockAlert{
				Level:   domain.AlertInfo,
				Product: product.Name,
				Message: fmt.Sprintf("%s will run out in about %d days at the current sales rate", product.Name, daysLeft),
			}, true
		}
	}
	return domain.StockAlert{}, false
}
