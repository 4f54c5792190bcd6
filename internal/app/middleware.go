package app

import (
	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/middleware"
)

type Middleware struct {
	Identity *middleware.IdentityMiddleware
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Identity: middleware.NewIdentityMiddleware(log),
	}
}
