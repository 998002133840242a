package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter builds a gin engine with access logging, panic recovery and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	// No proxy is trusted, so ClientIP is the socket peer address.
	if err := router.SetTrustedProxies(nil); err != nil {
		slog.Warn("configuring trusted proxies", "error", err)
	}
	router.Use(gin.Logger(), gin.Recovery())

	SetupRoutes(router, deps)
	return router
}
