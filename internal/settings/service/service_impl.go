package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("settings.service"),
	}
}

// Get returns the org profile. An org that never saved one gets an empty
// profile rather than a not-found error.
func (s *Service) Get(ctx context.Context) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var settings domain.OrgSettings
	err := s.db.WithContext(ctx).Raw(
		`SELECT org_id, display_name, tax_id, address
		 FROM org_settings WHERE org_id = ?`,
		orgID.Int64(),
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}

	return &domain.Response{
		DisplayName: settings.DisplayName,
		TaxID:       settings.TaxID,
		Address:     settings.Address,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	settings := domain.OrgSettings{
		OrgID:       orgID.Int64(),
		DisplayName: name,
		TaxID:       strings.TrimSpace(req.TaxID),
		Address:     strings.TrimSpace(req.Address),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "tax_id", "address", "updated_at",
		}),
	}).Create(&settings).Error
	if err != nil {
		return nil, err
	}

	s.log.Info("org settings updated", zap.String("org_id", orgID.String()))

	return &domain.Response{
		DisplayName: settings.DisplayName,
		TaxID:       settings.TaxID,
		Address:     settings.Address,
	}, nil
}
