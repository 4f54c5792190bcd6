package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelforge-backend/internal/server"
)

func wireRouter(handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		DatasetHandler:     handlerset.Dataset,
		FileHandler:        handlerset.File,
		IdentityMiddleware: middlewareset.Identity,
	})
}
