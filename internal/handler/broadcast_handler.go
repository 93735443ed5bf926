package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"govalert/internal/domain/broadcast"
	"govalert/internal/services"
	"govalert/internal/transport/httpdto"
)

type BroadcastHandler struct {
	service *services.BroadcastService
}

func NewBroadcastHandler(service *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{service: service}
}

// Create handles the app-authored path: broadcasts start as drafts.
func (h *BroadcastHandler) Create(c *gin.Context) {
	h.create(c, broadcast.StatusDraft)
}

// CreateV2 handles the external API path: broadcasts arrive ready for
// approval.
func (h *BroadcastHandler) CreateV2(c *gin.Context) {
	h.create(c, broadcast.StatusPendingApproval)
}

func (h *BroadcastHandler) create(c *gin.Context, initial broadcast.Status) {
	serviceID, err := uuid.Parse(c.Param("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid service id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid created_by", "INVALID_REQUEST"))
		return
	}

	params := services.CreateParams{
		Content:         req.Content,
		Reference:       req.Reference,
		Personalisation: req.Personalisation,
		AreaNames:       req.Areas,
		SimplePolygons:  req.SimplePolygons,
		StartsAt:        req.StartsAt,
		FinishesAt:      req.FinishesAt,
		CreatedBy:       createdBy,
		InitialStatus:   initial,
	}
	if req.TemplateID != nil {
		templateID, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid template_id", "INVALID_REQUEST"))
			return
		}
		params.TemplateID = &templateID
	}

	b, err := h.service.Create(c.Request.Context(), serviceID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewBroadcastMessageResponse(b)))
}

func (h *BroadcastHandler) List(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid service id", "INVALID_REQUEST"))
		return
	}
	msgs, err := h.service.GetForService(c.Request.Context(), serviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]httpdto.BroadcastMessageResponse, 0, len(msgs))
	for _, b := range msgs {
		out = append(out, httpdto.NewBroadcastMessageResponse(b))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"broadcast_messages": out}))
}

func (h *BroadcastHandler) GetByID(c *gin.Context) {
	serviceID, id, ok := h.pathIDs(c)
	if !ok {
		return
	}
	b, err := h.service.GetByID(c.Request.Context(), serviceID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewBroadcastMessageResponse(b)))
}

func (h *BroadcastHandler) Update(c *gin.Context) {
	serviceID, id, ok := h.pathIDs(c)
	if !ok {
		return
	}
	var req httpdto.UpdateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	b, err := h.service.Update(c.Request.Context(), serviceID, id, services.UpdateParams{
		Content:         req.Content,
		Personalisation: req.Personalisation,
		AreaNames:       req.Areas,
		SimplePolygons:  req.SimplePolygons,
		StartsAt:        req.StartsAt,
		FinishesAt:      req.FinishesAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewBroadcastMessageResponse(b)))
}

// UpdateStatus accepts exactly {status, created_by}; any other key is
// rejected before the state machine sees the request.
func (h *BroadcastHandler) UpdateStatus(c *gin.Context) {
	serviceID, id, ok := h.pathIDs(c)
	if !ok {
		return
	}

	var req httpdto.UpdateBroadcastStatusRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if req.Status == "" || req.CreatedBy == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("status and created_by are required", "INVALID_REQUEST"))
		return
	}
	requestedBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid created_by", "INVALID_REQUEST"))
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), serviceID, id, broadcast.Status(req.Status), requestedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewBroadcastMessageResponse(b)))
}

func (h *BroadcastHandler) pathIDs(c *gin.Context) (serviceID, id uuid.UUID, ok bool) {
	serviceID, err := uuid.Parse(c.Param("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid service id", "INVALID_REQUEST"))
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid broadcast id", "INVALID_REQUEST"))
		return uuid.Nil, uuid.Nil, false
	}
	return serviceID, id, true
}
