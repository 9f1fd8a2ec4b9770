package auth

import (
	"github.com/smallbiznis/invoicenexus/internal/auth/repository"
	"github.com/smallbiznis/invoicenexus/internal/auth/service"
	"github.com/smallbiznis/invoicenexus/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
