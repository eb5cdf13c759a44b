package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/scrollvite/internal/catalog/repository"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	inviterepository "github.com/smallbiznis/scrollvite/internal/invite/repository"
	"github.com/smallbiznis/scrollvite/internal/lock"
	"github.com/smallbiznis/scrollvite/internal/order/domain"
	"github.com/smallbiznis/scrollvite/internal/order/repository"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters/sandbox"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/payment/mocks"
	paymentrepository "github.com/smallbiznis/scrollvite/internal/payment/repository"
	"github.com/smallbiznis/scrollvite/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var buyer = authdomain.Principal{Subject: "user-1", Email: "asha@example.com"}

type harness struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	template *catalogdomain.Template
	orders   domain.Repository
	payments paymentdomain.Repository
	invites  invitedomain.Repository
}

func newHarness(t *testing.T, gateway paymentdomain.Gateway) *harness {
	t.Helper()

	conn := testutil.OpenDB(t)
	node := testutil.Node(t)
	h := &harness{
		db:       conn,
		clock:    clock.NewFakeClock(time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)),
		template: testutil.SeedTemplate(t, conn, node, nil),
		orders:   repository.Provide(),
		payments: paymentrepository.Provide(),
		invites:  inviterepository.Provide(),
	}
	h.svc = New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       h.clock,
		Config:      config.Config{FrontendURL: "https://scrollvite.test"},
		Policy:      config.NewStaticInvitePolicyHolder(config.DefaultInvitePolicy()),
		Locker:      lock.NewMemoryLocker(5 * time.Second),
		Gateway:     gateway,
		Repo:        h.orders,
		CatalogRepo: catalogrepository.Provide(),
		PaymentRepo: h.payments,
		InviteRepo:  h.invites,
	})
	return h
}

func newSandbox(t *testing.T) paymentdomain.Gateway {
	t.Helper()
	adapter, err := sandbox.NewFactory().NewAdapter(adapters.Config{KeyID: "rzp_test_key", KeySecret: "secret"})
	require.NoError(t, err)
	return adapter
}

func (h *harness) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&domain.Order{}).Count(&count).Error)
	return count
}

func (h *harness) purchase(t *testing.T) *domain.PurchaseResponse {
	t.Helper()
	resp, err := h.svc.InitiatePurchase(context.Background(), buyer, h.template.ID.String())
	require.NoError(t, err)
	return resp
}

func TestInitiatePurchaseCreatesCheckout(t *testing.T) {
	h := newHarness(t, newSandbox(t))

	resp := h.purchase(t)
	assert.False(t, resp.AlreadyOwned)
	assert.False(t, resp.Reused)
	assert.Regexp(t, `^order_[0-9a-f]{14}$`, resp.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", resp.GatewayKeyID)
	assert.Equal(t, "1299.00", resp.Amount)
	assert.Equal(t, int64(129900), resp.AmountMinor)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "Royal Wedding Invitation", resp.TemplateTitle)

	var order domain.Order
	require.NoError(t, h.db.Where("user_id = ?", buyer.Subject).First(&order).Error)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, resp.OrderID, order.ID.String())
	assert.Equal(t, "Asha", order.SchemaSnapshot["hero"].(map[string]any)["bride_name"])

	payment, err := h.payments.FindByOrderID(context.Background(), h.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.Equal(t, resp.GatewayOrderID, payment.GatewayOrderID)
	assert.Equal(t, "sandbox", payment.Provider)
}

func TestInitiatePurchaseReusesFreshPendingOrder(t *testing.T) {
	h := newHarness(t, newSandbox(t))

	first := h.purchase(t)
	h.clock.Advance(5 * time.Minute)
	second := h.purchase(t)

	assert.True(t, second.Reused)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, int64(1), h.countOrders(t))
}

func TestInitiatePurchaseStartsOverWhenPendingIsUnusable(t *testing.T) {
	tests := []struct {
		name  string
		spoil func(t *testing.T, h *harness, first *domain.PurchaseResponse)
	}{
		{
			name: "stale",
			spoil: func(_ *testing.T, h *harness, _ *domain.PurchaseResponse) {
				h.clock.Advance(16 * time.Minute)
			},
		},
		{
			name: "price changed",
			spoil: func(t *testing.T, h *harness, _ *domain.PurchaseResponse) {
				require.NoError(t, h.db.Exec(`UPDATE templates SET price_minor = ? WHERE id = ?`, 149900, h.template.ID).Error)
			},
		},
		{
			name: "payment failed",
			spoil: func(t *testing.T, h *harness, first *domain.PurchaseResponse) {
				require.NoError(t, h.db.Exec(`UPDATE payments SET status = ? WHERE gateway_order_id = ?`, paymentdomain.StatusFailed, first.GatewayOrderID).Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newSandbox(t))
			first := h.purchase(t)
			tt.spoil(t, h, first)

			second := h.purchase(t)
			assert.False(t, second.Reused)
			assert.NotEqual(t, first.OrderID, second.OrderID)
			assert.NotEqual(t, first.GatewayOrderID, second.GatewayOrderID)
			assert.Equal(t, int64(2), h.countOrders(t))
		})
	}
}

func TestInitiatePurchaseAlreadyOwned(t *testing.T) {
	h := newHarness(t, newSandbox(t))
	ctx := context.Background()

	first := h.purchase(t)
	var order domain.Order
	require.NoError(t, h.db.Where("user_id = ?", buyer.Subject).First(&order).Error)
	_, err := h.orders.Transition(ctx, h.db, order.ID, domain.StatusPending, domain.StatusActive, h.clock.Now())
	require.NoError(t, err)

	inst := &invitedomain.Instance{
		ID:         order.ID + 1,
		OrderID:    order.ID,
		TemplateID: h.template.ID,
		Schema:     order.SchemaSnapshot,
		PublicSlug: "invite-0123456789",
		IsActive:   true,
		CreatedAt:  h.clock.Now(),
		UpdatedAt:  h.clock.Now(),
		ExpiresAt:  h.clock.Now().AddDate(0, 0, 90),
	}
	require.NoError(t, h.invites.Insert(ctx, h.db, inst))

	resp := h.purchase(t)
	assert.True(t, resp.AlreadyOwned)
	assert.Equal(t, first.OrderID, resp.OrderID)
	assert.Empty(t, resp.GatewayOrderID)
	assert.Equal(t, "https://scrollvite.test/invite/invite-0123456789", resp.InviteURL)
	assert.Equal(t, "https://scrollvite.test/editor/"+inst.ID.String(), resp.EditorURL)
	assert.Equal(t, int64(1), h.countOrders(t))

	owned, err := h.svc.ListOwned(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Asha", owned[0].BrideName)
	assert.Equal(t, "Rohan", owned[0].GroomName)
	assert.Equal(t, "RoyalWeddingTemplate", owned[0].Component)
	assert.Equal(t, "1299.00", owned[0].Amount)
	assert.False(t, owned[0].IsExpired)
}

func TestInitiatePurchaseGatewayFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).Return(nil, &paymentdomain.GatewayError{
		Provider:  "sandbox",
		Op:        "create_order",
		Retryable: true,
		Err:       errors.New("connection reset"),
	})

	h := newHarness(t, gw)
	_, err := h.svc.InitiatePurchase(context.Background(), buyer, h.template.ID.String())
	require.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)
	assert.Zero(t, h.countOrders(t))
}

func TestInitiatePurchaseRejectsBadInput(t *testing.T) {
	h := newHarness(t, newSandbox(t))
	ctx := context.Background()

	_, err := h.svc.InitiatePurchase(ctx, authdomain.Principal{}, h.template.ID.String())
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)

	_, err = h.svc.InitiatePurchase(ctx, buyer, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)

	_, err = h.svc.InitiatePurchase(ctx, buyer, "12345")
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)

	require.NoError(t, h.db.Exec(`UPDATE templates SET is_published = ? WHERE id = ?`, false, h.template.ID).Error)
	_, err = h.svc.InitiatePurchase(ctx, buyer, h.template.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
}

func TestInitiatePurchaseConcurrentCallsCreateOneOrder(t *testing.T) {
	h := newHarness(t, newSandbox(t))

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*domain.PurchaseResponse, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.InitiatePurchase(context.Background(), buyer, h.template.ID.String())
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].OrderID, results[i].OrderID)
		if !results[i].Reused {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, int64(1), h.countOrders(t))
}

func TestListOwnedEmpty(t *testing.T) {
	h := newHarness(t, newSandbox(t))
	h.purchase(t)

	owned, err := h.svc.ListOwned(context.Background(), buyer)
	require.NoError(t, err)
	assert.NotNil(t, owned)
	assert.Empty(t, owned)
}
