package listingevents

import (
	"context"
	"encoding/json"
	"fmt"

	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// Record writes one audit row on tx. Callers pass the transaction of the mutation being described.
func Record(tx *gorm.DB, listingID uuid.UUID, eventType string, actor domain.Actor, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	eventDataBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	event := &domain.ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(eventDataBytes),
	}
	if !actor.Anonymous() {
		id := actor.UserID
		event.ActorID = &id
	}
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("Failed to create listing event: %w", err)
	}
	return nil
}

// ListEvents returns the trail oldest first, optionally for one listing.
func (s *Service) ListEvents(ctx context.Context, listingID *uuid.UUID) ([]domain.ListingEvent, error) {
	q := s.DB.WithContext(ctx).Model(&domain.ListingEvent{})
	if listingID != nil {
		q = q.Where("listing_id = ?", *listingID)
	}
	var events []domain.ListingEvent
	if err := q.Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
