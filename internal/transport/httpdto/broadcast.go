package httpdto

import (
	"time"

	"govalert/internal/domain/broadcast"
)

type CreateBroadcastRequest struct {
	TemplateID      *string              `json:"template_id"`
	Content         string               `json:"content"`
	Reference       string               `json:"reference"`
	Personalisation map[string]string    `json:"personalisation"`
	Areas           []string             `json:"areas"`
	SimplePolygons  []broadcast.Polygon  `json:"simple_polygons"`
	StartsAt        *time.Time           `json:"starts_at"`
	FinishesAt      *time.Time           `json:"finishes_at"`
	CreatedBy       string               `json:"created_by" binding:"required"`
}

type UpdateBroadcastRequest struct {
	Content         *string             `json:"content"`
	Personalisation map[string]string   `json:"personalisation"`
	Areas           []string            `json:"areas"`
	SimplePolygons  []broadcast.Polygon `json:"simple_polygons"`
	StartsAt        *time.Time          `json:"starts_at"`
	FinishesAt      *time.Time          `json:"finishes_at"`
}

// UpdateBroadcastStatusRequest is deliberately strict: the payload accepts
// exactly status and created_by, nothing else. The handler decodes it with
// DisallowUnknownFields.
type UpdateBroadcastStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	CreatedBy string `json:"created_by" binding:"required"`
}

type BroadcastMessageResponse struct {
	ID              string              `json:"id"`
	ServiceID       string              `json:"service_id"`
	TemplateID      *string             `json:"template_id"`
	Reference       *string             `json:"reference"`
	Content         string              `json:"content"`
	Personalisation map[string]string   `json:"personalisation"`
	Areas           []string            `json:"areas"`
	SimplePolygons  []broadcast.Polygon `json:"simple_polygons"`
	Status          string              `json:"status"`
	StartsAt        *time.Time          `json:"starts_at"`
	FinishesAt      *time.Time          `json:"finishes_at"`
	Stubbed         bool                `json:"stubbed"`
	CreatedAt       time.Time           `json:"created_at"`
	CreatedBy       string              `json:"created_by"`
	ApprovedAt      *time.Time          `json:"approved_at"`
	ApprovedBy      *string             `json:"approved_by"`
	CancelledAt     *time.Time          `json:"cancelled_at"`
	CancelledBy     *string             `json:"cancelled_by"`
}

func NewBroadcastMessageResponse(b broadcast.BroadcastMessage) BroadcastMessageResponse {
	resp := BroadcastMessageResponse{
		ID:              b.ID.String(),
		ServiceID:       b.ServiceID.String(),
		Content:         b.Content,
		Personalisation: b.Personalisation,
		Areas:           b.Areas.AreaNames,
		SimplePolygons:  b.Areas.SimplePolygons,
		Status:          string(b.Status),
		Stubbed:         b.Stubbed,
		CreatedAt:       b.CreatedAt,
		CreatedBy:       b.CreatedByID.String(),
	}
	if b.TemplateID != nil {
		id := b.TemplateID.String()
		resp.TemplateID = &id
	}
	if b.Reference.Valid {
		resp.Reference = &b.Reference.String
	}
	if b.StartsAt.Valid {
		t := b.StartsAt.Time
		resp.StartsAt = &t
	}
	if b.FinishesAt.Valid {
		t := b.FinishesAt.Time
		resp.FinishesAt = &t
	}
	if b.ApprovedAt.Valid {
		t := b.ApprovedAt.Time
		resp.ApprovedAt = &t
	}
	if b.ApprovedByID != nil {
		id := b.ApprovedByID.String()
		resp.ApprovedBy = &id
	}
	if b.CancelledAt.Valid {
		t := b.CancelledAt.Time
		resp.CancelledAt = &t
	}
	if b.CancelledByID != nil {
		id := b.CancelledByID.String()
		resp.CancelledBy = &id
	}
	return resp
}
