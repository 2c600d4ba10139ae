package service

import (
	"context"
	"fmt"

	"anjoman/internal/cache"
	apperrors "anjoman/internal/errors"
	"anjoman/internal/logger"
	"anjoman/internal/models"
	"anjoman/internal/repository"
)

// EventService serves the read-only event catalog. Single-event reads go
// through the Redis cache; admission and payment always read the database
// directly so capacity decisions never act on a stale snapshot.
type EventService struct {
	eventRepo *repository.EventRepository
	cache     *cache.Client
}

func NewEventService(eventRepo *repository.EventRepository, c *cache.Client) *EventService {
	return &EventService{eventRepo: eventRepo, cache: c}
}

func (s *EventService) List(ctx context.Context, status, search string, limit, offset int) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, status, search, limit, offset)
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	if s.cache != nil {
		if event, err := s.cache.GetEvent(ctx, id); err == nil {
			return event, nil
		}
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache event", "event_id", id, "error", err)
		}
	}

	return event, nil
}
