// README: HTTP route registration.
package http

import (
	"github.com/gin-gonic/gin"

	"chauffeur/internal/http/handlers"
	"chauffeur/internal/http/middleware"
	"chauffeur/internal/infra"
)

// overrideRoles may replace a computed price.
var overrideRoles = []string{"operator", "admin"}

func middlewareStack() []gin.HandlerFunc {
	return []gin.HandlerFunc{middleware.Logging(), middleware.Recovery()}
}

func registerPricingRoutes(api *gin.RouterGroup, h *handlers.PricingHandler, verifier infra.TokenVerifier) {
	quotes := api.Group("/pricing/quotes", middleware.Auth(verifier))
	quotes.POST("", h.Quote)
	quotes.GET("/:id", h.Get)
	quotes.POST("/:id/override", middleware.RequireRoles(overrideRoles...), h.Override)
}
