// README: API gateway; builds the gin engine and delegates to the pricing service.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/http/handlers"
	"chauffeur/internal/infra"
)

type ServerDeps struct {
	Pricing  handlers.PricingService
	Verifier infra.TokenVerifier
	// Ready reports dependency health for /health; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	pricing  *handlers.PricingHandler
	verifier infra.TokenVerifier
	ready    func(ctx context.Context) error
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		pricing:  handlers.NewPricingHandler(deps.Pricing),
		verifier: deps.Verifier,
		ready:    deps.Ready,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middlewareStack()...)
	r.GET("/health", s.health)
	registerPricingRoutes(r.Group("/api"), s.pricing, s.verifier)
	return r
}

func (s *Server) health(c *gin.Context) {
	if s.ready != nil {
		if err := s.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.String(http.StatusOK, "OK")
}
