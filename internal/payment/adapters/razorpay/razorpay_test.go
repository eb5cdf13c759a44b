package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	adapter, err := NewFactory().NewAdapter(adapters.Config{
		KeyID:         "rzp_test_key",
		KeySecret:     "key_secret",
		WebhookSecret: "hook_secret",
		BaseURL:       srv.URL,
	})
	require.NoError(t, err)
	return adapter.(*Adapter)
}

func TestCreateIntent(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key_secret", pass)

		var body orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(129900), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "1234", body.Receipt)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_Abc123", "amount": 129900, "currency": "INR", "status": "created",
		})
	})

	intent, err := adapter.CreateIntent(context.Background(), domain.IntentRequest{
		AmountMinor: 129900,
		Currency:    "inr",
		Receipt:     "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_Abc123", intent.ID)
	assert.Equal(t, int64(129900), intent.AmountMinor)
	assert.Equal(t, "INR", intent.Currency)
}

func TestFetchPayment(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_Xyz789", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "pay_Xyz789", "order_id": "order_Abc123", "status": "captured",
			"amount": 129900, "currency": "INR", "method": "upi",
		})
	})

	payment, err := adapter.FetchPayment(context.Background(), "pay_Xyz789")
	require.NoError(t, err)
	assert.True(t, payment.Settled())
	assert.Equal(t, "order_Abc123", payment.OrderID)
	assert.Equal(t, int64(129900), payment.AmountMinor)
}

func TestGatewayErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"not found", http.StatusNotFound, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			})

			_, err := adapter.FetchPayment(context.Background(), "pay_missing")
			var gwErr *domain.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tc.status, gwErr.StatusCode)
			assert.Equal(t, tc.retryable, gwErr.Retryable)
			assert.Equal(t, tc.retryable, domain.IsRetryableGatewayErr(err))
		})
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := adapter.FetchPayment(ctx, "pay_slow")
	require.Error(t, err)
	assert.True(t, domain.IsRetryableGatewayErr(err))
}

func TestCheckoutSignature(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	sig := signature.Sign("key_secret", signature.CheckoutMessage("order_Abc123", "pay_Xyz789"))

	assert.True(t, adapter.VerifyCheckoutSignature("order_Abc123", "pay_Xyz789", sig))
	assert.False(t, adapter.VerifyCheckoutSignature("order_Abc123", "pay_Other", sig))
}

func TestWebhookVerifyAndParse(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	payload := []byte(`{"entity":"event","event":"payment.captured","created_at":1735084800,
		"payload":{"payment":{"entity":{"id":"pay_Xyz789","order_id":"order_Abc123","status":"captured","amount":129900,"currency":"INR"}}}}`)

	headers := http.Header{}
	headers.Set(headerSignature, signature.Sign("hook_secret", payload))
	headers.Set(headerEventID, "evt_1")

	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	event, err := adapter.Parse(context.Background(), payload, headers)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypePaymentCaptured, event.Type)
	assert.Equal(t, "evt_1", event.ProviderEventID)
	assert.Equal(t, "order_Abc123", event.GatewayOrderID)
	assert.Equal(t, "pay_Xyz789", event.GatewayPaymentID)

	headers.Set(headerSignature, signature.Sign("wrong", payload))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), domain.ErrInvalidSignature)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := adapter.Parse(context.Background(), []byte(`{"event":"order.paid","payload":{}}`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrEventIgnored)

	_, err = adapter.Parse(context.Background(), []byte(`not json`), http.Header{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
