package httpdto

import (
	"time"

	"govalert/internal/domain/notification"
)

type SendNotificationRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	To        string `json:"to" binding:"required"`
	Content   string `json:"content" binding:"required"`
	Reference string `json:"reference"`
}

type NotificationResponse struct {
	ID            string     `json:"id"`
	ServiceID     string     `json:"service_id"`
	Channel       string     `json:"channel"`
	To            string     `json:"to"`
	Reference     *string    `json:"reference"`
	Status        string     `json:"status"`
	BillableUnits int        `json:"billable_units"`
	SentBy        *string    `json:"sent_by"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewNotificationResponse(n notification.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:            n.ID.String(),
		ServiceID:     n.ServiceID.String(),
		Channel:       string(n.Channel),
		To:            n.Recipient,
		Status:        string(n.Status),
		BillableUnits: n.BillableUnits,
		CreatedAt:     n.CreatedAt,
	}
	if n.Reference.Valid {
		resp.Reference = &n.Reference.String
	}
	if n.SentBy.Valid {
		resp.SentBy = &n.SentBy.String
	}
	if n.SentAt.Valid {
		t := n.SentAt.Time
		resp.SentAt = &t
	}
	return resp
}
