package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Customer struct {
	ID        int64             `json:"id" gorm:"primaryKey"`
	OrgID     int64             `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name      string            `json:"name" gorm:"type:text;not null"`
	Email     string            `json:"email" gorm:"type:text"`
	Contact   string            `json:"contact" gorm:"type:text"`
	Address   string            `json:"address" gorm:"type:text"`
	TaxID     string            `json:"tax_id" gorm:"column:tax_id;type:text"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }
