package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	authservice "github.com/smallbiznis/scrollvite/internal/auth/service"
	"github.com/smallbiznis/scrollvite/internal/authorization"
	"github.com/smallbiznis/scrollvite/internal/config"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/observability"
	obsmetrics "github.com/smallbiznis/scrollvite/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/ratelimit"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"github.com/smallbiznis/scrollvite/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "test-secret"

type stubOrders struct {
	resp *orderdomain.PurchaseResponse
	err  error

	templateID string
	principal  authdomain.Principal
}

func (s *stubOrders) InitiatePurchase(_ context.Context, principal authdomain.Principal, templateID string) (*orderdomain.PurchaseResponse, error) {
	s.principal = principal
	s.templateID = templateID
	return s.resp, s.err
}

func (s *stubOrders) ListOwned(context.Context, authdomain.Principal) ([]orderdomain.OwnedPurchase, error) {
	return []orderdomain.OwnedPurchase{}, s.err
}

type stubPayments struct {
	err error
	req paymentdomain.VerifyRequest
}

func (s *stubPayments) VerifyPayment(_ context.Context, _ authdomain.Principal, req paymentdomain.VerifyRequest) (*paymentdomain.VerifyResponse, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &paymentdomain.VerifyResponse{Status: "success", PublicSlug: "invite-0123456789"}, nil
}

func (s *stubPayments) ReconcileCaptured(context.Context, string, string, string) (*paymentdomain.VerifyResponse, error) {
	return nil, errors.New("not used")
}

func (s *stubPayments) MarkFailed(context.Context, string, string, string) error {
	return errors.New("not used")
}

type stubWebhooks struct {
	err      error
	provider string
	payload  []byte
}

func (s *stubWebhooks) IngestWebhook(_ context.Context, provider string, payload []byte, _ http.Header) error {
	s.provider = provider
	s.payload = payload
	return s.err
}

type stubInvites struct {
	err     error
	updated schema.Document
}

func (s *stubInvites) GetPublic(context.Context, string) (*invitedomain.PublicInvite, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &invitedomain.PublicInvite{TemplateTitle: "Royal Wedding Invitation"}, nil
}

func (s *stubInvites) GetOwned(_ context.Context, _ authdomain.Principal, id string) (*invitedomain.OwnedInvite, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &invitedomain.OwnedInvite{ID: id}, nil
}

func (s *stubInvites) UpdateSchema(_ context.Context, _ authdomain.Principal, id string, doc schema.Document) (*invitedomain.UpdateResult, error) {
	s.updated = doc
	if s.err != nil {
		return nil, s.err
	}
	return &invitedomain.UpdateResult{Status: "saved", ID: id, PublicSlug: "invite-0123456789"}, nil
}

func (s *stubInvites) ListOwned(context.Context, authdomain.Principal) ([]invitedomain.OwnedInvite, error) {
	return []invitedomain.OwnedInvite{}, s.err
}

type testServer struct {
	engine   http.Handler
	orders   *stubOrders
	payments *stubPayments
	webhooks *stubWebhooks
	invites  *stubInvites
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	httpMetrics, err := obsmetrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	engine := NewEngine(observability.Config{}, zap.NewNop(), httpMetrics)

	cfg := config.Config{AuthJWTSecret: jwtSecret}
	verifier, err := authservice.NewJWTVerifier(cfg, zap.NewNop())
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer()
	require.NoError(t, err)

	ts := &testServer{
		engine:   engine,
		orders:   &stubOrders{resp: &orderdomain.PurchaseResponse{OrderID: "1", GatewayOrderID: "order_abc"}},
		payments: &stubPayments{},
		webhooks: &stubWebhooks{},
		invites:  &stubInvites{},
	}
	NewServer(Params{
		Engine:     engine,
		Config:     cfg,
		DB:         testutil.OpenDB(t),
		Log:        zap.NewNop(),
		Verifier:   verifier,
		Authz:      authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		Limiter:    ratelimit.NewMemoryLimiter(0.01, 2),
		OrderSvc:   ts.orders,
		PaymentSvc: ts.payments,
		WebhookSvc: ts.webhooks,
		InviteSvc:  ts.invites,
	})
	return ts
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": subject + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:4321"
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Type
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestCreatePurchase(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/purchases/42", token(t, "user-1"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "42", ts.orders.templateID)
	assert.Equal(t, "user-1", ts.orders.principal.Subject)
	assert.Equal(t, "user-1@example.com", ts.orders.principal.Email)

	ts.orders.resp = &orderdomain.PurchaseResponse{OrderID: "1", Reused: true}
	rec = ts.do(t, http.MethodPost, "/api/purchases/42", token(t, "user-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePurchaseRequiresAuthAndCapability(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/purchases/42", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorType(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/purchases/42", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/purchases/42", token(t, "user-1", "guest"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorType(t, rec))
	assert.Empty(t, ts.orders.templateID)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{orderdomain.ErrInvalidTemplate, http.StatusBadRequest, "invalid_template"},
		{paymentdomain.ErrAmountMismatch, http.StatusPaymentRequired, "amount_mismatch"},
		{paymentdomain.ErrAlreadyOwned, http.StatusPaymentRequired, "already_owned"},
		{paymentdomain.ErrPaymentNotFound, http.StatusNotFound, "payment_not_found"},
		{errors.Join(paymentdomain.ErrGatewayUnavailable, errors.New("dial tcp: timeout")), http.StatusServiceUnavailable, "gateway_unavailable"},
		{errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			ts := newTestServer(t)
			ts.payments.err = tt.err

			rec := ts.do(t, http.MethodPost, "/api/payments/verify", token(t, "user-1"), map[string]string{
				"gateway_order_id":   "order_abc",
				"gateway_payment_id": "pay_abc",
				"signature":          "sig",
			})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.kind, errorType(t, rec))
			assert.NotContains(t, rec.Body.String(), "dial tcp")
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestVerifyPaymentAcceptsCheckoutFieldNames(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/payments/verify", token(t, "user-1"), map[string]string{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_abc",
		"razorpay_signature":  "sig",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paymentdomain.VerifyRequest{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_abc",
		Signature:        "sig",
	}, ts.payments.req)

	rec = ts.do(t, http.MethodPost, "/api/payments/verify", token(t, "user-1"), map[string]string{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_proof", errorType(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/payments/verify", token(t, "user-1"), "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorType(t, rec))
}

func TestPaymentWebhook(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/payments/webhooks/razorpay", "", `{"event":"payment.captured"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "razorpay", ts.webhooks.provider)
	assert.Equal(t, `{"event":"payment.captured"}`, string(ts.webhooks.payload))

	ts.webhooks.err = paymentdomain.ErrInvalidSignature
	rec = ts.do(t, http.MethodPost, "/api/payments/webhooks/razorpay", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.webhooks.err = paymentdomain.ErrGatewayUnavailable
	rec = ts.do(t, http.MethodPost, "/api/payments/webhooks/razorpay", "", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublicInvite(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/public/invites/invite-0123456789", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Royal Wedding Invitation")

	ts.invites.err = invitedomain.ErrInviteExpired
	rec = ts.do(t, http.MethodGet, "/public/invites/invite-0123456789", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "invite_expired", errorType(t, rec))
}

func TestPublicInviteRateLimited(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/public/invites/invite-0123456789", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/public/invites/invite-0123456789", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", errorType(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestUpdateInvite(t *testing.T) {
	ts := newTestServer(t)
	bearer := token(t, "user-1")

	rec := ts.do(t, http.MethodPut, "/api/invites/7", bearer, map[string]any{
		"schema": map[string]any{"hero": map[string]any{"bride_name": "Meera"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"saved","id":"7","public_slug":"invite-0123456789"}`, rec.Body.String())
	name, _ := ts.invites.updated.Text("hero.bride_name")
	assert.Equal(t, "Meera", name)

	for _, body := range []string{`{}`, `{"schema":[1,2]}`, `{"schema":"text"}`} {
		rec = ts.do(t, http.MethodPut, "/api/invites/7", bearer, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid_schema", errorType(t, rec), body)
	}

	ts.invites.err = invitedomain.ErrNotFound
	rec = ts.do(t, http.MethodGet, "/api/invites/7", bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)
	bearer := token(t, "user-1")

	rec := ts.do(t, http.MethodGet, "/api/purchases", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/invites", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
