package routes

import (
	"docuchat-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupFallbackRoutes registers the handler for unmatched paths so unknown
// routes get the standard error envelope instead of gin's default 404.
func SetupFallbackRoutes(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		utils.RespondWithNotFound(c, "Route not found: "+c.Request.URL.Path)
	})
}
