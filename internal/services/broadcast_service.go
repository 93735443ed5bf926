package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/service"
	"govalert/internal/metrics"
	"govalert/internal/queue"
	"govalert/internal/repository"
	govalert_errors "govalert/pkg/errors"
	"govalert/pkg/logger"
)

// TransmitPayload is the queue payload for broadcast event handoff. Only the
// id travels; the executor re-reads the event so queued data never goes
// stale.
type TransmitPayload struct {
	BroadcastEventID uuid.UUID `json:"broadcast_event_id"`
}

// BroadcastService owns the broadcast message lifecycle: creation, edits
// while pre-broadcast, and every status transition.
type BroadcastService struct {
	broadcasts repository.BroadcastRepository
	events     repository.EventRepository
	services   repository.ServiceRepository
	enqueuer   queue.Enqueuer
	log        *logger.Logger

	// transmittedSender is the fixed identity stamped on every event.
	transmittedSender string
	clock             func() time.Time
}

func NewBroadcastService(
	repos *repository.Repositories,
	enqueuer queue.Enqueuer,
	log *logger.Logger,
	transmittedSender string,
) *BroadcastService {
	return &BroadcastService{
		broadcasts:        repos.Broadcasts,
		events:            repos.Events,
		services:          repos.Services,
		enqueuer:          enqueuer,
		log:               log,
		transmittedSender: transmittedSender,
		clock:             time.Now,
	}
}

// CreateParams carries everything needed to author a broadcast. Exactly one
// of TemplateID or (Content, Reference) must be populated.
type CreateParams struct {
	TemplateID      *uuid.UUID
	TemplateVersion *int
	Content         string
	Reference       string
	Personalisation map[string]string
	AreaNames       []string
	SimplePolygons  []broadcast.Polygon
	StartsAt        *time.Time
	FinishesAt      *time.Time
	CreatedBy       uuid.UUID
	// InitialStatus is draft for app-authored messages and
	// pending-approval for the external API path.
	InitialStatus broadcast.Status
}

func (s *BroadcastService) Create(ctx context.Context, serviceID uuid.UUID, params CreateParams) (broadcast.BroadcastMessage, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	if _, err := s.services.GetUserByID(ctx, params.CreatedBy); err != nil {
		return broadcast.BroadcastMessage{}, err
	}

	hasTemplate := params.TemplateID != nil
	hasContent := params.Content != "" || params.Reference != ""
	if hasTemplate == hasContent {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: provide either template_id or content with reference",
			govalert_errors.ErrInvalidInput)
	}
	if !hasTemplate && (params.Content == "" || params.Reference == "") {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: content and reference are both required without a template",
			govalert_errors.ErrInvalidInput)
	}

	initial := params.InitialStatus
	if initial == "" {
		initial = broadcast.StatusDraft
	}
	if initial != broadcast.StatusDraft && initial != broadcast.StatusPendingApproval {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: broadcasts start as draft or pending-approval",
			govalert_errors.ErrInvalidInput)
	}

	b := broadcast.BroadcastMessage{
		ID:              uuid.New(),
		ServiceID:       svc.ID,
		TemplateID:      params.TemplateID,
		TemplateVersion: params.TemplateVersion,
		Content:         params.Content,
		Personalisation: params.Personalisation,
		Areas: broadcast.Areas{
			AreaNames:      params.AreaNames,
			SimplePolygons: params.SimplePolygons,
		},
		Status:      initial,
		StartsAt:    toNullTime(params.StartsAt),
		FinishesAt:  toNullTime(params.FinishesAt),
		Stubbed:     svc.Restricted,
		CreatedAt:   s.clock().UTC(),
		CreatedByID: params.CreatedBy,
	}
	if params.Reference != "" {
		b.Reference = sql.NullString{String: params.Reference, Valid: true}
	}

	if err := s.broadcasts.Create(ctx, &b); err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	return b, nil
}

func (s *BroadcastService) GetByID(ctx context.Context, serviceID, id uuid.UUID) (broadcast.BroadcastMessage, error) {
	return s.broadcasts.GetByIDAndServiceID(ctx, id, serviceID)
}

func (s *BroadcastService) GetForService(ctx context.Context, serviceID uuid.UUID) ([]broadcast.BroadcastMessage, error) {
	return s.broadcasts.GetForService(ctx, serviceID)
}

// UpdateParams are the editable fields. Nil means "leave unchanged". The
// area-name list and the polygon list must always travel together.
type UpdateParams struct {
	Content         *string
	Personalisation map[string]string
	AreaNames       []string
	SimplePolygons  []broadcast.Polygon
	StartsAt        *time.Time
	FinishesAt      *time.Time
	ClearStartsAt   bool
	ClearFinishesAt bool
}

func (s *BroadcastService) Update(ctx context.Context, serviceID, id uuid.UUID, params UpdateParams) (broadcast.BroadcastMessage, error) {
	b, err := s.broadcasts.GetByIDAndServiceID(ctx, id, serviceID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}

	svc, err := s.services.GetByID(ctx, b.ServiceID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	if !svc.Active {
		return broadcast.BroadcastMessage{}, govalert_errors.ErrServiceInactive
	}

	if !broadcast.IsPreBroadcast(b.Status) {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: cannot update broadcast %s while it has status %s",
			govalert_errors.ErrInvalidInput, b.ID, b.Status)
	}

	// Areas and polygons are replaced atomically or not at all.
	if (params.AreaNames != nil) != (params.SimplePolygons != nil) {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: areas and simple_polygons must be supplied together",
			govalert_errors.ErrInvalidInput)
	}

	if params.Content != nil {
		b.Content = *params.Content
	}
	if params.Personalisation != nil {
		b.Personalisation = params.Personalisation
	}
	if params.AreaNames != nil {
		b.Areas = broadcast.Areas{
			AreaNames:      params.AreaNames,
			SimplePolygons: params.SimplePolygons,
		}
	}
	if params.StartsAt != nil {
		b.StartsAt = toNullTime(params.StartsAt)
	} else if params.ClearStartsAt {
		b.StartsAt = sql.NullTime{}
	}
	if params.FinishesAt != nil {
		b.FinishesAt = toNullTime(params.FinishesAt)
	} else if params.ClearFinishesAt {
		b.FinishesAt = sql.NullTime{}
	}

	if err := s.broadcasts.Update(ctx, b); err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	return b, nil
}

// UpdateStatus validates and applies one state machine transition, stamping
// approval or cancellation metadata and appending the broadcast event when
// the transition is eligible for real transmission. A rejected transition
// never mutates stored state.
func (s *BroadcastService) UpdateStatus(ctx context.Context, serviceID, id uuid.UUID, newStatus broadcast.Status, requestedBy uuid.UUID) (broadcast.BroadcastMessage, error) {
	b, err := s.broadcasts.GetByIDAndServiceID(ctx, id, serviceID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}

	svc, err := s.services.GetByID(ctx, b.ServiceID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	if !svc.Active {
		return broadcast.BroadcastMessage{}, govalert_errors.ErrServiceInactive
	}

	user, err := s.services.GetUserByID(ctx, requestedBy)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}

	if !broadcast.IsValidStatus(newStatus) {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: unknown status %q", govalert_errors.ErrInvalidInput, newStatus)
	}

	member, err := s.services.IsMember(ctx, b.ServiceID, user.ID)
	if err != nil {
		return broadcast.BroadcastMessage{}, err
	}
	if !member {
		// Platform admins may cancel any broadcast; everything else
		// requires service membership.
		if !(newStatus == broadcast.StatusCancelled && user.PlatformAdmin) {
			return broadcast.BroadcastMessage{}, fmt.Errorf("%w: user %s cannot update broadcast %s from another service",
				govalert_errors.ErrInvalidInput, user.ID, b.ID)
		}
	}

	from := b.Status
	if !broadcast.CanTransition(from, newStatus) {
		return broadcast.BroadcastMessage{}, fmt.Errorf("%w: cannot move broadcast %s from %s to %s",
			govalert_errors.ErrInvalidTransition, b.ID, from, newStatus)
	}

	now := s.clock().UTC()
	switch newStatus {
	case broadcast.StatusBroadcasting:
		// Training mode services can approve their own broadcasts.
		if user.ID == b.CreatedByID && !svc.Restricted {
			return broadcast.BroadcastMessage{}, fmt.Errorf("%w: user %s cannot approve their own broadcast %s",
				govalert_errors.ErrInvalidTransition, user.ID, b.ID)
		}
		if len(b.Areas.SimplePolygons) == 0 {
			return broadcast.BroadcastMessage{}, fmt.Errorf("%w: broadcast %s has no selected areas and so cannot be broadcast",
				govalert_errors.ErrInvalidTransition, b.ID)
		}
		b.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		approvedBy := user.ID
		b.ApprovedByID = &approvedBy
	case broadcast.StatusCancelled:
		b.CancelledAt = sql.NullTime{Time: now, Valid: true}
		cancelledBy := user.ID
		b.CancelledByID = &cancelledBy
	}

	s.log.Infof("broadcast %s moving from %s to %s", b.ID, from, newStatus)
	b.Status = newStatus

	if err := s.broadcasts.UpdateStatus(ctx, b, from); err != nil {
		if errors.Is(err, govalert_errors.ErrConflict) {
			// A concurrent transition won; the caller sees the
			// post-transition status and a transition rejection.
			fresh, rerr := s.broadcasts.GetByIDAndServiceID(ctx, id, serviceID)
			if rerr == nil {
				return broadcast.BroadcastMessage{}, fmt.Errorf("%w: cannot move broadcast %s from %s to %s",
					govalert_errors.ErrInvalidTransition, b.ID, fresh.Status, newStatus)
			}
		}
		return broadcast.BroadcastMessage{}, err
	}

	if newStatus == broadcast.StatusBroadcasting || newStatus == broadcast.StatusCancelled {
		if err := s.createBroadcastEvent(ctx, b, svc); err != nil {
			return broadcast.BroadcastMessage{}, err
		}
	}
	return b, nil
}

// createBroadcastEvent appends the immutable transmission record and hands
// its id to the transport task, when the broadcast is eligible for real
// transmission (message not stubbed, service live).
func (s *BroadcastService) createBroadcastEvent(ctx context.Context, b broadcast.BroadcastMessage, svc service.Service) error {
	if !b.Stubbed && !svc.Restricted {
		messageType := broadcast.MessageTypeAlert
		if b.Status == broadcast.StatusCancelled {
			messageType = broadcast.MessageTypeCancel
		}

		event := broadcast.BroadcastEvent{
			ID:                    uuid.New(),
			BroadcastMessageID:    b.ID,
			ServiceID:             svc.ID,
			MessageType:           messageType,
			TransmittedContent:    broadcast.TransmittedContent{Body: b.Content},
			TransmittedAreas:      b.Areas,
			TransmittedSender:     s.transmittedSender,
			TransmittedStartsAt:   b.StartsAt,
			TransmittedFinishesAt: b.FinishesAt,
			SentAt:                s.clock().UTC(),
		}
		if err := s.events.Create(ctx, &event); err != nil {
			return err
		}
		metrics.BroadcastEventsCreatedTotal.WithLabelValues(string(messageType)).Inc()

		payload, err := json.Marshal(TransmitPayload{BroadcastEventID: event.ID})
		if err != nil {
			return err
		}
		return s.enqueuer.Enqueue(ctx, queue.Task{
			Kind:    queue.KindTransmitBroadcastEvent,
			Payload: payload,
		}, 0)
	}

	if b.Stubbed != svc.Restricted {
		// A service can go live (or back to trial) between drafting and
		// approving. We refuse to guess whether transmission is now safe.
		mode := "live"
		if svc.Restricted {
			mode = "in trial mode"
		}
		metrics.BroadcastEligibilityAnomaliesTotal.Inc()
		s.log.Errorf("broadcast event not created: stubbed status of broadcast %s was %t but service was %s",
			b.ID, b.Stubbed, mode)
	}
	return nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
