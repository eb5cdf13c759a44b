package invite

import (
	"github.com/smallbiznis/scrollvite/internal/invite/repository"
	"github.com/smallbiznis/scrollvite/internal/invite/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invite.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewProvisioner),
	fx.Provide(service.New),
)
