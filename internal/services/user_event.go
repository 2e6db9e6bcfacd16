package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/types"
)

const (
	UserEventTypeImport = "import"
	UserEventTypeLogin  = "login"
)

// UserEventService appends audit events. Events are write-once: nothing in
// the application mutates or deletes them.
type UserEventService interface {
	Append(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, payload interface{}) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*types.UserEvent, error)
}

type userEventService struct {
	db            *gorm.DB
	log           *logger.Logger
	userEventRepo repos.UserEventRepo
}

func NewUserEventService(db *gorm.DB, baseLog *logger.Logger, userEventRepo repos.UserEventRepo) UserEventService {
	return &userEventService{
		db:            db,
		log:           baseLog.With("service", "UserEventService"),
		userEventRepo: userEventRepo,
	}
}

func (s *userEventService) Append(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, payload interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	event := &types.UserEvent{
		ID:     uuid.New(),
		UserID: userID,
		Type:   eventType,
		Data:   data,
	}
	if _, err := s.userEventRepo.Create(ctx, tx, []*types.UserEvent{event}); err != nil {
		return fmt.Errorf("create user event: %w", err)
	}
	return nil
}

func (s *userEventService) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*types.UserEvent, error) {
	return s.userEventRepo.GetByUserID(ctx, nil, userID)
}
