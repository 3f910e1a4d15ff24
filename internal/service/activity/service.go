package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/autoflow-dev/autoflow/internal/domain"
	"github.com/autoflow-dev/autoflow/internal/repository"
	"github.com/autoflow-dev/autoflow/internal/ws"
)

const defaultFeedLimit = 50

// Service records events in the per-user feed and pushes them to live
// websocket subscribers.
type Service struct {
	activities repository.ActivityRepository
	hub        *ws.Hub
	logger     *slog.Logger
}

func New(activities repository.ActivityRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{activities: activities, hub: hub, logger: logger}
}

// Record persists an activity entry and broadcasts it to the owner's feed.
func (s Service) Record(ctx context.Context, entry domain.Activity) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.activities.CreateActivity(ctx, &entry); err != nil {
		return err
	}
	s.publish(entry)
	return nil
}

// ListByUser returns the most recent feed entries for a user.
func (s Service) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	return s.activities.ListActivitiesByUser(ctx, userID, limit)
}

func (s Service) publish(entry domain.Activity) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("marshal activity for broadcast", slog.String("error", err.Error()))
		return
	}
	s.hub.Broadcast(FeedKey(entry.UserID), data)
}

// FeedKey is the hub subscription key for a user's feed.
func FeedKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
