package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	obscontext "github.com/smallbiznis/scrollvite/internal/observability/context"
	obslogger "github.com/smallbiznis/scrollvite/internal/observability/logger"
	"go.uber.org/zap"
)

const principalContextKey = "principal"

// AuthRequired verifies the bearer token and stores the caller on both the
// gin context and the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, authdomain.ErrUnauthorized)
			return
		}

		principal, err := s.verifier.Verify(token)
		if err != nil {
			obslogger.FromContext(c.Request.Context()).Debug("bearer token rejected", zap.Error(err))
			AbortWithError(c, authdomain.ErrUnauthorized)
			return
		}

		ctx := authdomain.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, "user", principal.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			AbortWithError(c, authdomain.ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PublicInviteRateLimit throttles unauthenticated invite reads per client IP.
// Limiter failures let the request through.
func (s *Server) PublicInviteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.Allow(ctx, "public_invite:"+c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, "public_invite")
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (authdomain.Principal, bool) {
	if v, ok := c.Get(principalContextKey); ok {
		if p, ok := v.(authdomain.Principal); ok && !p.IsZero() {
			return p, true
		}
	}
	return authdomain.PrincipalFromContext(c.Request.Context())
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
