package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	"github.com/smallbiznis/ledgerly/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.OrgSettings{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{DB: conn, Log: zap.NewNop()})
	return svc, orgcontext.WithOrgID(context.Background(), node.Generate().Int64())
}

func TestGet_EmptyProfile(t *testing.T) {
	svc, ctx := newService(t)

	resp, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.DisplayName)
	assert.Empty(t, resp.TaxID)
	assert.Empty(t, resp.Address)
}

func TestUpdate_InsertsThenUpdates(t *testing.T) {
	svc, ctx := newService(t)

	resp, err := svc.Update(ctx, domain.UpdateRequest{
		DisplayName: "  Corner Shop  ",
		TaxID:       "TAX-42",
		Address:     "1 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", resp.DisplayName)

	resp, err = svc.Update(ctx, domain.UpdateRequest{
		DisplayName: "Corner Shop Ltd",
		Address:     "2 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop Ltd", resp.DisplayName)
	assert.Empty(t, resp.TaxID)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop Ltd", got.DisplayName)
	assert.Equal(t, "2 Main St", got.Address)
}

func TestUpdate_RequiresName(t *testing.T) {
	svc, ctx := newService(t)

	_, err := svc.Update(ctx, domain.UpdateRequest{DisplayName: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdate_MissingOrg(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Update(context.Background(), domain.UpdateRequest{DisplayName: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
