package auth

import (
	"github.com/smallbiznis/scrollvite/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(service.NewJWTVerifier),
)
