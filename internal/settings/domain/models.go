package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
)

// OrgSettings is the per-org business profile printed on invoices.
type OrgSettings struct {
	OrgID       int64     `json:"organization_id" gorm:"column:org_id;primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:text;not null"`
	TaxID       string    `json:"tax_id" gorm:"column:tax_id;type:text"`
	Address     string    `json:"address" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrgSettings) TableName() string { return "org_settings" }

type UpdateRequest struct {
	DisplayName string `json:"display_name"`
	TaxID       string `json:"tax_id"`
	Address     string `json:"address"`
}

type Response struct {
	DisplayName string `json:"display_name"`
	TaxID       string `json:"tax_id"`
	Address     string `json:"address"`
}

type Service interface {
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}
