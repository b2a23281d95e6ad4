package service

import (
	"context"

	"github.com/alexanderramin/hourglass/internal/domain"
)

// TrackerService drives the lifecycle of running time trackers. Every
// operation takes the acting user explicitly.
type TrackerService interface {
	List(ctx context.Context, actor *domain.User) ([]*domain.TimeTracker, error)
	Get(ctx context.Context, actor *domain.User, ref TrackerRef) (*domain.TimeTracker, error)
	Start(ctx context.Context, actor *domain.User, params *TrackerParams) (*domain.TimeTracker, error)
	Update(ctx context.Context, actor *domain.User, ref TrackerRef, params *TrackerParams) (*domain.TimeTracker, error)
	Stop(ctx context.Context, actor *domain.User, ref TrackerRef) (*StopResult, error)
	Destroy(ctx context.Context, actor *domain.User, ref TrackerRef) error
	BulkUpdate(ctx context.Context, actor *domain.User, items []BulkItem) (*BulkResult[*domain.TimeTracker], error)
	BulkDestroy(ctx context.Context, actor *domain.User, ids []string) (*BulkResult[*domain.TimeTracker], error)
}

// StopResult holds what a stopped tracker turned into. Booking is nil when
// the tracker had no project.
type StopResult struct {
	TimeLog     *domain.TimeLog
	TimeBooking *domain.TimeBooking
}

// StartNotifier is told about every committed start that references an issue.
// Implementations must not block the caller.
type StartNotifier interface {
	NotifyStart(ctx context.Context, actor *domain.User, tracker *domain.TimeTracker)
}
