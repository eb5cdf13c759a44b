package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	"github.com/smallbiznis/scrollvite/internal/authorization"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorKind struct {
	err     error
	status  int
	kind    string
	message string
}

// errorKinds is matched in order; the first errors.Is hit wins.
var errorKinds = []errorKind{
	{catalogdomain.ErrInvalidTemplate, http.StatusBadRequest, "invalid_template", "template is not available for purchase"},
	{paymentdomain.ErrMissingProof, http.StatusBadRequest, "missing_proof", "payment proof is incomplete"},
	{invitedomain.ErrInvalidSchema, http.StatusBadRequest, "invalid_schema", "schema must be a JSON object"},
	{paymentdomain.ErrInvalidPayload, http.StatusBadRequest, "invalid_payload", "webhook payload is not valid"},
	{paymentdomain.ErrInvalidEvent, http.StatusBadRequest, "invalid_payload", "webhook payload is not valid"},

	{authdomain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "authentication required"},
	{paymentdomain.ErrInvalidSignature, http.StatusUnauthorized, "unauthorized", "webhook signature rejected"},

	{authdomain.ErrForbidden, http.StatusForbidden, "forbidden", "not allowed"},
	{authorization.ErrInvalidObject, http.StatusForbidden, "forbidden", "not allowed"},
	{authorization.ErrInvalidAction, http.StatusForbidden, "forbidden", "not allowed"},

	{paymentdomain.ErrPaymentNotFound, http.StatusNotFound, "payment_not_found", "payment not found"},
	{paymentdomain.ErrProviderNotFound, http.StatusNotFound, "not_found", "not found"},
	{invitedomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{orderdomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{catalogdomain.ErrNotFound, http.StatusNotFound, "not_found", "not found"},

	{orderdomain.ErrOrderNotActive, http.StatusConflict, "conflict", "order is not active"},
	{invitedomain.ErrAlreadyProvisioned, http.StatusConflict, "conflict", "invite already exists"},

	{invitedomain.ErrInviteExpired, http.StatusGone, "invite_expired", "this invitation has expired"},

	{paymentdomain.ErrSignatureInvalid, http.StatusPaymentRequired, "signature_invalid", "payment signature is invalid"},
	{paymentdomain.ErrAmountMismatch, http.StatusPaymentRequired, "amount_mismatch", "paid amount does not match the order"},
	{paymentdomain.ErrOrderMismatch, http.StatusPaymentRequired, "order_mismatch", "payment belongs to a different order"},
	{paymentdomain.ErrPaymentNotCaptured, http.StatusPaymentRequired, "payment_not_captured", "payment has not been captured"},
	{paymentdomain.ErrProductUnavailable, http.StatusPaymentRequired, "product_unavailable", "template is no longer available"},
	{paymentdomain.ErrGatewayVerification, http.StatusPaymentRequired, "gateway_verification_failed", "payment could not be verified"},
	{paymentdomain.ErrAlreadyOwned, http.StatusPaymentRequired, "already_owned", "template is already owned"},
	{paymentdomain.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed", "payment has failed"},

	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many requests"},

	{paymentdomain.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable", "payment gateway is unavailable, try again"},
	{db.ErrTryAgain, http.StatusServiceUnavailable, "try_again", "please try again"},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// fromValidator converts go-playground field errors into the response shape.
func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: fe.Field() + " is " + fe.Tag(),
		})
	}
	return out
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, errorPayload{Type: k.kind, Message: k.message}
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the error_type field of the request log.
func classifyErrorForLog(err error) string {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		return "internal"
	}
	return payload.Type
}
