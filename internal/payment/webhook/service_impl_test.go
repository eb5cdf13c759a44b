package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters/sandbox"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/scrollvite/internal/payment/repository"
	"github.com/smallbiznis/scrollvite/internal/payment/signature"
	"github.com/smallbiznis/scrollvite/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "sbx_webhook"

// fakeReconciler records what the webhook asked the payment service to do.
type fakeReconciler struct {
	captured []string
	failed   []string
	err      error
}

func (f *fakeReconciler) VerifyPayment(context.Context, authdomain.Principal, paymentdomain.VerifyRequest) (*paymentdomain.VerifyResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeReconciler) ReconcileCaptured(_ context.Context, _ string, gatewayOrderID, _ string) (*paymentdomain.VerifyResponse, error) {
	f.captured = append(f.captured, gatewayOrderID)
	if f.err != nil {
		return nil, f.err
	}
	return &paymentdomain.VerifyResponse{Status: "success"}, nil
}

func (f *fakeReconciler) MarkFailed(_ context.Context, gatewayOrderID, _ string, _ string) error {
	f.failed = append(f.failed, gatewayOrderID)
	return f.err
}

func newTestService(t *testing.T, reconciler paymentdomain.Service) (*Service, *gorm.DB) {
	t.Helper()

	adapter, err := sandbox.NewFactory().NewAdapter(adapters.Config{KeySecret: "sbx_secret", WebhookSecret: webhookSecret})
	require.NoError(t, err)

	conn := testutil.OpenDB(t)
	svc := NewService(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      testutil.Node(t),
		Clock:      clock.NewFakeClock(time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)),
		Gateway:    adapter,
		Adapter:    adapter,
		PaymentSvc: reconciler,
		Repo:       paymentrepository.Provide(),
	})
	return svc.(*Service), conn
}

func signedEvent(t *testing.T, body map[string]any) ([]byte, http.Header) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	headers := http.Header{}
	headers.Set("X-Sandbox-Signature", signature.Sign(webhookSecret, payload))
	return payload, headers
}

func capturedEvent(id string) map[string]any {
	return map[string]any{
		"id":         id,
		"type":       paymentdomain.EventTypePaymentCaptured,
		"order_id":   "order_abc",
		"payment_id": "pay_order_abc",
		"amount":     129900,
		"currency":   "INR",
	}
}

func TestIngestWebhookAppliesCapturedEventOnce(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, conn := newTestService(t, reconciler)

	payload, headers := signedEvent(t, capturedEvent("evt_1"))
	require.NoError(t, svc.IngestWebhook(context.Background(), "sandbox", payload, headers))
	require.NoError(t, svc.IngestWebhook(context.Background(), "SANDBOX", payload, headers))

	assert.Equal(t, []string{"order_abc"}, reconciler.captured)

	var record paymentdomain.EventRecord
	require.NoError(t, conn.Where("provider_event_id = ?", "evt_1").First(&record).Error)
	assert.NotNil(t, record.ProcessedAt)
	assert.Equal(t, paymentdomain.EventTypePaymentCaptured, record.EventType)
}

func TestIngestWebhookFailedEvent(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, _ := newTestService(t, reconciler)

	body := capturedEvent("evt_2")
	body["type"] = paymentdomain.EventTypePaymentFailed
	body["reason"] = "card declined"
	payload, headers := signedEvent(t, body)

	require.NoError(t, svc.IngestWebhook(context.Background(), "sandbox", payload, headers))
	assert.Equal(t, []string{"order_abc"}, reconciler.failed)
	assert.Empty(t, reconciler.captured)
}

func TestIngestWebhookRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeReconciler{})

	payload, headers := signedEvent(t, capturedEvent("evt_3"))

	err := svc.IngestWebhook(context.Background(), "razorpay", payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	err = svc.IngestWebhook(context.Background(), "sandbox", []byte("not json"), headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	tampered := http.Header{}
	tampered.Set("X-Sandbox-Signature", signature.Sign("wrong", payload))
	err = svc.IngestWebhook(context.Background(), "sandbox", payload, tampered)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestIngestWebhookIgnoresUnknownTypes(t *testing.T) {
	reconciler := &fakeReconciler{}
	svc, conn := newTestService(t, reconciler)

	body := capturedEvent("evt_4")
	body["type"] = "refund_created"
	payload, headers := signedEvent(t, body)

	require.NoError(t, svc.IngestWebhook(context.Background(), "sandbox", payload, headers))
	assert.Empty(t, reconciler.captured)

	var count int64
	require.NoError(t, conn.Model(&paymentdomain.EventRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestWebhookTerminalRejectionIsAcknowledged(t *testing.T) {
	reconciler := &fakeReconciler{err: paymentdomain.ErrAmountMismatch}
	svc, conn := newTestService(t, reconciler)

	payload, headers := signedEvent(t, capturedEvent("evt_5"))
	require.NoError(t, svc.IngestWebhook(context.Background(), "sandbox", payload, headers))

	var record paymentdomain.EventRecord
	require.NoError(t, conn.Where("provider_event_id = ?", "evt_5").First(&record).Error)
	assert.NotNil(t, record.ProcessedAt)
}

func TestIngestWebhookTransientErrorIsRedelivered(t *testing.T) {
	reconciler := &fakeReconciler{err: paymentdomain.ErrGatewayUnavailable}
	svc, conn := newTestService(t, reconciler)

	payload, headers := signedEvent(t, capturedEvent("evt_6"))
	err := svc.IngestWebhook(context.Background(), "sandbox", payload, headers)
	require.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)

	var record paymentdomain.EventRecord
	require.NoError(t, conn.Where("provider_event_id = ?", "evt_6").First(&record).Error)
	assert.Nil(t, record.ProcessedAt)

	// The redelivery retries the same event record.
	reconciler.err = nil
	require.NoError(t, svc.IngestWebhook(context.Background(), "sandbox", payload, headers))
	assert.Len(t, reconciler.captured, 2)

	var retried paymentdomain.EventRecord
	require.NoError(t, conn.Where("provider_event_id = ?", "evt_6").First(&retried).Error)
	assert.NotNil(t, retried.ProcessedAt)
}
