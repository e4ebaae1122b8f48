package migration

import (
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/config"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/ledgerly/internal/inventory/domain"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/internal/seed"
	settingsdomain "github.com/smallbiznis/ledgerly/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// SQLite and MySQL installs derive the schema from the models.
			if err := conn.AutoMigrate(
				&productdomain.Product{},
				&customerdomain.Customer{},
				&billingdomain.Invoice{},
				&billingdomain.InvoiceItem{},
				&inventorydomain.StockLog{},
				&settingsdomain.OrgSettings{},
			); err != nil {
				return err
			}
		}

		_, err := seed.EnsureDefaultOrg(conn, cfg.DefaultOrgID)
		return err
	}),
)
