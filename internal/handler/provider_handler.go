package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govalert/internal/repository"
	"govalert/internal/transport/httpdto"
)

// ProviderHandler is the administrative surface for the provider registry:
// list providers, adjust priority and activation. Changes are visible to the
// next dispatch attempt.
type ProviderHandler struct {
	providers repository.ProviderRepository
}

func NewProviderHandler(providers repository.ProviderRepository) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

func (h *ProviderHandler) List(c *gin.Context) {
	providers, err := h.providers.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]httpdto.ProviderResponse, 0, len(providers))
	for _, p := range providers {
		out = append(out, httpdto.NewProviderResponse(p))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"provider_details": out}))
}

func (h *ProviderHandler) Update(c *gin.Context) {
	identifier := c.Param("identifier")
	var req httpdto.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.providers.GetByIdentifier(c.Request.Context(), identifier)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.SupportsInternational != nil {
		p.SupportsInternational = *req.SupportsInternational
	}
	if err := h.providers.Update(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewProviderResponse(p)))
}
