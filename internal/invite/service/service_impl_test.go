package service

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogrepository "github.com/smallbiznis/scrollvite/internal/catalog/repository"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/invite/domain"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) service() domain.Service {
	return New(Params{
		DB:          f.db,
		Log:         zap.NewNop(),
		Config:      config.Config{FrontendURL: "https://scrollvite.test"},
		Clock:       f.clock,
		Repo:        f.invites,
		CatalogRepo: catalogrepository.Provide(),
	})
}

func (f *fixture) activeInvite(t *testing.T, userID string) *domain.Instance {
	t.Helper()
	inst, err := f.provision(t, f.provisioner(zap.NewNop()), f.order(t, userID, orderdomain.StatusActive))
	require.NoError(t, err)
	return inst
}

func TestGetPublic(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	inst := f.activeInvite(t, "user-1")

	got, err := svc.GetPublic(context.Background(), inst.PublicSlug)
	require.NoError(t, err)
	assert.Equal(t, "Royal Wedding Invitation", got.TemplateTitle)
	assert.Equal(t, "RoyalWeddingTemplate", got.TemplateComponent)
	name, _ := got.Schema.Text("hero.bride_name")
	assert.Equal(t, "Asha", name)

	_, err = svc.GetPublic(context.Background(), "invite-0000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetPublic(context.Background(), "not-a-slug")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPublicExpiredButOwnerStillSees(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	inst := f.activeInvite(t, "user-1")

	f.clock.Set(inst.ExpiresAt.Add(time.Minute))

	_, err := svc.GetPublic(context.Background(), inst.PublicSlug)
	assert.ErrorIs(t, err, domain.ErrInviteExpired)

	owned, err := svc.GetOwned(context.Background(), authdomain.Principal{Subject: "user-1"}, inst.ID.String())
	require.NoError(t, err)
	assert.True(t, owned.IsExpired)
	assert.Equal(t, "https://scrollvite.test/invite/"+inst.PublicSlug, owned.InviteURL)
}

func TestGetPublicInactive(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	inst := f.activeInvite(t, "user-1")

	require.NoError(t, f.db.Exec(`UPDATE invite_instances SET is_active = ? WHERE id = ?`, false, inst.ID).Error)

	_, err := svc.GetPublic(context.Background(), inst.PublicSlug)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetOwnedHidesOtherBuyersInvites(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	inst := f.activeInvite(t, "user-1")

	_, err := svc.GetOwned(context.Background(), authdomain.Principal{Subject: "user-2"}, inst.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetOwned(context.Background(), authdomain.Principal{Subject: "user-1"}, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetOwned(context.Background(), authdomain.Principal{}, inst.ID.String())
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
}

func TestUpdateSchema(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	inst := f.activeInvite(t, "user-1")
	owner := authdomain.Principal{Subject: "user-1"}

	doc := schema.Document{
		"hero":  map[string]any{"bride_name": "Meera", "groom_name": "Dev"},
		"event": map[string]any{"date": "2025-02-14"},
	}
	res, err := svc.UpdateSchema(context.Background(), owner, inst.ID.String(), doc)
	require.NoError(t, err)
	assert.Equal(t, "saved", res.Status)
	assert.Equal(t, inst.PublicSlug, res.PublicSlug)

	got, err := svc.GetPublic(context.Background(), inst.PublicSlug)
	require.NoError(t, err)
	name, _ := got.Schema.Text("hero.bride_name")
	assert.Equal(t, "Meera", name)

	// Expiry is fixed at provisioning time.
	owned, err := svc.GetOwned(context.Background(), owner, inst.ID.String())
	require.NoError(t, err)
	assert.True(t, owned.ExpiresAt.Equal(inst.ExpiresAt))

	_, err = svc.UpdateSchema(context.Background(), authdomain.Principal{Subject: "user-2"}, inst.ID.String(), doc)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdateSchema(context.Background(), owner, inst.ID.String(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestListOwnedInvites(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()
	f.activeInvite(t, "user-1")
	f.activeInvite(t, "user-2")

	items, err := svc.ListOwned(context.Background(), authdomain.Principal{Subject: "user-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Royal Wedding Invitation", items[0].TemplateTitle)
	assert.False(t, items[0].IsExpired)

	empty, err := svc.ListOwned(context.Background(), authdomain.Principal{Subject: "user-3"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
