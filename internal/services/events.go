package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/realtime"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// EventService maintains the display-oriented circle timeline. Record
// persists inside the caller's transaction; Broadcast fans out over the
// bus and is called after commit, best-effort.
type EventService interface {
	Record(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, userID *uuid.UUID, kind types.CircleEventKind, message string, data map[string]any) (*types.CircleEvent, error)
	Broadcast(ctx context.Context, event *types.CircleEvent)
	ListByCircle(ctx context.Context, circleID uuid.UUID, limit int) ([]*types.CircleEvent, error)
}

type eventService struct {
	db        *gorm.DB
	log       *logger.Logger
	eventRepo repos.CircleEventRepo
	bus       realtime.Bus
}

func NewEventService(db *gorm.DB, baseLog *logger.Logger, eventRepo repos.CircleEventRepo, bus realtime.Bus) EventService {
	return &eventService{
		db:        db,
		log:       baseLog.With("service", "EventService"),
		eventRepo: eventRepo,
		bus:       bus,
	}
}

func (s *eventService) Record(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, userID *uuid.UUID, kind types.CircleEventKind, message string, data map[string]any) (*types.CircleEvent, error) {
	var payload datatypes.JSON
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payload = datatypes.JSON(raw)
	}
	event := &types.CircleEvent{
		ID:        uuid.New(),
		CircleID:  circleID,
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) Broadcast(ctx context.Context, event *types.CircleEvent) {
	if event == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Warn("Event broadcast failed", "circle_id", event.CircleID, "kind", event.Kind, "error", err)
	}
}

func (s *eventService) ListByCircle(ctx context.Context, circleID uuid.UUID, limit int) ([]*types.CircleEvent, error) {
	return s.eventRepo.ListByCircle(ctx, nil, circleID, limit)
}
