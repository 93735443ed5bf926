package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"govalert/internal/domain/notification"
	"govalert/internal/services"
	"govalert/internal/transport/httpdto"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) SendSMS(c *gin.Context) {
	h.send(c, notification.ChannelSMS)
}

func (h *NotificationHandler) SendEmail(c *gin.Context) {
	h.send(c, notification.ChannelEmail)
}

func (h *NotificationHandler) send(c *gin.Context, channel notification.Channel) {
	var req httpdto.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid service_id", "INVALID_REQUEST"))
		return
	}

	n, err := h.service.Send(c.Request.Context(), services.SendParams{
		ServiceID: serviceID,
		Channel:   channel,
		Recipient: req.To,
		Content:   req.Content,
		Reference: req.Reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewNotificationResponse(n)))
}

func (h *NotificationHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid notification id", "INVALID_REQUEST"))
		return
	}
	n, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewNotificationResponse(n)))
}
