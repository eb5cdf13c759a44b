package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
)

const maxWebhookBody = 1 << 20

// verifyPaymentRequest accepts both the neutral field names and the ones the
// Razorpay checkout handler posts back verbatim.
type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type verifyProof struct {
	GatewayOrderID   string `validate:"required,max=128"`
	GatewayPaymentID string `validate:"required,max=128"`
	Signature        string `validate:"required,max=256"`
}

func (r verifyPaymentRequest) proof() verifyProof {
	return verifyProof{
		GatewayOrderID:   firstNonEmpty(r.GatewayOrderID, r.RazorpayOrderID),
		GatewayPaymentID: firstNonEmpty(r.GatewayPaymentID, r.RazorpayPaymentID),
		Signature:        firstNonEmpty(r.Signature, r.RazorpaySignature),
	}
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	proof := req.proof()
	if err := s.validate.Struct(proof); err != nil {
		if missingField(err) {
			AbortWithError(c, paymentdomain.ErrMissingProof)
			return
		}
		AbortWithError(c, fromValidator(err))
		return
	}

	principal, _ := principalFrom(c)
	resp, err := s.paymentSvc.VerifyPayment(c.Request.Context(), principal, paymentdomain.VerifyRequest{
		GatewayOrderID:   proof.GatewayOrderID,
		GatewayPaymentID: proof.GatewayPaymentID,
		Signature:        proof.Signature,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandlePaymentWebhook always answers 200 once the event is durably handled
// so the gateway stops redelivering; transient failures answer 5xx.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	if err := s.webhookSvc.IngestWebhook(c.Request.Context(), c.Param("provider"), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func missingField(err error) bool {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return false
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
