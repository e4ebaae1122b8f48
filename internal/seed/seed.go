// Package seed bootstraps a usable single-tenant install: a default org
// profile exists after first startup so the API works without any setup
// calls.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/smallbiznis/ledgerly/internal/settings/domain"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

// EnsureDefaultOrg creates the org profile for orgID when none exists.
// Returns the org ID in use; a zero orgID gets a generated snowflake ID.
func EnsureDefaultOrg(db *gorm.DB, orgID int64) (int64, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}

	if orgID == 0 {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return 0, err
		}
		orgID = node.Generate().Int64()
	}

	ctx := context.Background()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing settingsdomain.OrgSettings
		err := tx.WithContext(ctx).
			Where("org_id = ?", orgID).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		return tx.WithContext(ctx).Create(&settingsdomain.OrgSettings{
			OrgID:       orgID,
			DisplayName: defaultOrgName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return orgID, nil
}
