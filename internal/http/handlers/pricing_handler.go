// README: Pricing handlers: quote, read back and operator override.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/http/middleware"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/types"
)

// PricingService is the part of *pricing.Service the handlers call.
type PricingService interface {
	Quote(ctx context.Context, cmd pricing.QuoteCommand) (*pricing.Calculation, error)
	GetCalculation(ctx context.Context, orgID, id types.ID) (*pricing.Calculation, error)
	Override(ctx context.Context, cmd pricing.OverrideCommand) (*pricing.Calculation, error)
}

type PricingHandler struct {
	pricing PricingService
}

func NewPricingHandler(svc PricingService) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

type quoteReq struct {
	ContactID types.ID `json:"contactId,omitempty"`
	pricing.Request
}

type overrideRejected struct {
	*pricing.OverrideError
	Calculation *pricing.Calculation `json:"calculation,omitempty"`
}

// callerOrg writes 403 and returns "" when the token carries no organization.
func callerOrg(c *gin.Context) types.ID {
	org := middleware.CallerOrg(c)
	if org == "" {
		writeError(c, http.StatusForbidden, "forbidden: no organization on token")
	}
	return types.ID(org)
}

func (h *PricingHandler) Quote(c *gin.Context) {
	org := callerOrg(c)
	if org == "" {
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	calc, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteCommand{
		OrganizationID: org,
		ContactID:      req.ContactID,
		Request:        req.Request,
	})
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, calc)
}

func (h *PricingHandler) Get(c *gin.Context) {
	org := callerOrg(c)
	if org == "" {
		return
	}
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid calculation id")
		return
	}
	calc, err := h.pricing.GetCalculation(c.Request.Context(), org, types.ID(id))
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, calc)
}

func (h *PricingHandler) Override(c *gin.Context) {
	org := callerOrg(c)
	if org == "" {
		return
	}
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid calculation id")
		return
	}
	var req pricing.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.By = middleware.CallerUID(c)

	calc, err := h.pricing.Override(c.Request.Context(), pricing.OverrideCommand{
		OrganizationID: org,
		CalculationID:  types.ID(id),
		Override:       req,
	})
	var oerr *pricing.OverrideError
	if errors.As(err, &oerr) {
		writeJSON(c, http.StatusUnprocessableEntity, overrideRejected{OverrideError: oerr, Calculation: calc})
		return
	}
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, calc)
}
