package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/google/uuid"
)

// GateFactory builds the authorizer used for a connection or transaction.
type GateFactory func(conn db.DBTX) authz.Authorizer

// DefaultGate reads grants through conn.
func DefaultGate(conn db.DBTX) authz.Authorizer {
	return authz.NewGate(conn)
}

type trackerService struct {
	conn     db.DBTX
	uow      db.UnitOfWork
	gate     GateFactory
	now      func() time.Time
	rounding domain.Rounding
	notifier StartNotifier
	observer UseCaseObserver
}

// Option configures a TrackerService.
type Option func(*trackerService)

// WithClock replaces the wall clock used for start and stop times.
func WithClock(now func() time.Time) Option {
	return func(s *trackerService) { s.now = now }
}

func WithRounding(r domain.Rounding) Option {
	return func(s *trackerService) { s.rounding = r }
}

// WithNotifier registers the hook run after a start referencing an issue commits.
func WithNotifier(n StartNotifier) Option {
	return func(s *trackerService) { s.notifier = n }
}

func WithGateFactory(f GateFactory) Option {
	return func(s *trackerService) { s.gate = f }
}

func WithObserver(o UseCaseObserver) Option {
	return func(s *trackerService) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewTrackerService reads through conn and writes through uow. Both must
// reach the same database.
func NewTrackerService(conn db.DBTX, uow db.UnitOfWork, opts ...Option) TrackerService {
	s := &trackerService{
		conn:     conn,
		uow:      uow,
		gate:     DefaultGate,
		now:      func() time.Time { return time.Now().UTC() },
		rounding: domain.DefaultRounding(),
		observer: NoopUseCaseObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *trackerService) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, err error) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

func actorID(actor *domain.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}

func (s *trackerService) List(ctx context.Context, actor *domain.User) ([]*domain.TimeTracker, error) {
	gate := s.gate(s.conn)
	if err := gate.Authorize(ctx, actor, authz.CapView, authz.Collection{}); err != nil {
		return nil, err
	}
	all, err := repository.NewSQLiteTrackerRepo(s.conn).List(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*domain.TimeTracker, 0, len(all))
	for _, t := range all {
		err := gate.Authorize(ctx, actor, authz.CapView, t)
		switch {
		case err == nil:
			visible = append(visible, t)
		case !errors.Is(err, authz.ErrForbidden):
			return nil, err
		}
	}
	return visible, nil
}

// Get hides trackers the actor may not view behind ErrNotFound.
func (s *trackerService) Get(ctx context.Context, actor *domain.User, ref TrackerRef) (*domain.TimeTracker, error) {
	t, err := resolve(ctx, repository.NewSQLiteTrackerRepo(s.conn), actor, ref)
	if err != nil {
		return nil, err
	}
	if err := s.gate(s.conn).Authorize(ctx, actor, authz.CapView, t); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			return nil, fmt.Errorf("time tracker %s: %w", ref, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// Start creates a tracker owned by the actor, or by params.UserID when the
// actor may track time for others. Any start time in params is ignored.
func (s *trackerService) Start(ctx context.Context, actor *domain.User, params *TrackerParams) (tracker *domain.TimeTracker, err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor)}
	defer func() { s.observe(ctx, "start-tracker", startedAt, fields, err) }()

	if actor == nil {
		return nil, fmt.Errorf("%w: anonymous start", authz.ErrForbidden)
	}

	now := s.now()
	t := &domain.TimeTracker{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	params.applyTo(t)
	t.Start = now

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := inheritIssueProject(ctx, tx, t); err != nil {
			return err
		}
		if err := s.gate(tx).Authorize(ctx, actor, authz.CapCreate, t); err != nil {
			return err
		}
		if err := validateTracker(ctx, tx, t); err != nil {
			return err
		}
		return createTracker(ctx, repository.NewSQLiteTrackerRepo(tx), t)
	})
	if err != nil {
		return nil, err
	}
	fields["tracker_id"] = t.ID

	// Runs strictly after commit.
	if t.IssueID != nil && s.notifier != nil {
		s.notifier.NotifyStart(ctx, actor, t.Clone())
	}
	return t, nil
}

// Update authorizes against the stored tracker and again against the result,
// so a tracker cannot be moved somewhere the actor may not track.
func (s *trackerService) Update(ctx context.Context, actor *domain.User, ref TrackerRef, params *TrackerParams) (tracker *domain.TimeTracker, err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor), "ref": ref.String()}
	defer func() { s.observe(ctx, "update-tracker", startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trackers := repository.NewSQLiteTrackerRepo(tx)
		gate := s.gate(tx)

		current, err := resolve(ctx, trackers, actor, ref)
		if err != nil {
			return err
		}
		if err := gate.Authorize(ctx, actor, authz.CapUpdate, current); err != nil {
			return err
		}

		updated := current.Clone()
		params.applyTo(updated)
		if err := inheritIssueProject(ctx, tx, updated); err != nil {
			return err
		}
		if err := gate.Authorize(ctx, actor, authz.CapUpdate, updated); err != nil {
			return err
		}
		if err := validateTracker(ctx, tx, updated); err != nil {
			return err
		}
		updated.UpdatedAt = s.now()
		if err := trackers.Update(ctx, updated); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return &ValidationError{Messages: []string{msgAlreadyRunning}, Cause: err}
			}
			return err
		}
		tracker = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracker, nil
}

// Stop converts the tracker into a time log, and into a booking when it has a
// project, in one unit of work. A denied booking or an invalid log rolls the
// whole conversion back and leaves the tracker running.
func (s *trackerService) Stop(ctx context.Context, actor *domain.User, ref TrackerRef) (result *StopResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor), "ref": ref.String()}
	defer func() { s.observe(ctx, "stop-tracker", startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trackers := repository.NewSQLiteTrackerRepo(tx)
		gate := s.gate(tx)

		t, err := resolve(ctx, trackers, actor, ref)
		if err != nil {
			return err
		}
		if err := gate.Authorize(ctx, actor, authz.CapUpdate, t); err != nil {
			return err
		}

		now := s.now()
		log := t.ToTimeLog(now)
		log.ID = uuid.New().String()
		log.CreatedAt = now
		msgs := log.Validate()

		var booking *domain.TimeBooking
		if t.HasProject() {
			booking = log.Book(t, *t.ProjectID, s.rounding)
			booking.ID = uuid.New().String()
			booking.CreatedAt = now
			if err := gate.Authorize(ctx, actor, authz.CapBook, booking); err != nil {
				if errors.Is(err, authz.ErrForbidden) {
					return &ValidationError{Messages: append(msgs, msgBookingForbidden), Cause: err}
				}
				return err
			}
			msgs = append(msgs, booking.Validate()...)
		}
		if len(msgs) > 0 {
			return &ValidationError{Messages: msgs}
		}

		if err := repository.NewSQLiteTimeLogRepo(tx).Create(ctx, log); err != nil {
			return err
		}
		if booking != nil {
			if err := repository.NewSQLiteTimeBookingRepo(tx).Create(ctx, booking); err != nil {
				return err
			}
		}
		if err := trackers.Delete(ctx, t.ID); err != nil {
			return err
		}

		fields["tracker_id"] = t.ID
		fields["booked"] = booking != nil
		result = &StopResult{TimeLog: log, TimeBooking: booking}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *trackerService) Destroy(ctx context.Context, actor *domain.User, ref TrackerRef) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor), "ref": ref.String()}
	defer func() { s.observe(ctx, "destroy-tracker", startedAt, fields, err) }()

	_, err = s.destroy(ctx, actor, ref)
	return err
}

func (s *trackerService) destroy(ctx context.Context, actor *domain.User, ref TrackerRef) (*domain.TimeTracker, error) {
	var destroyed *domain.TimeTracker
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trackers := repository.NewSQLiteTrackerRepo(tx)
		t, err := resolve(ctx, trackers, actor, ref)
		if err != nil {
			return err
		}
		if err := s.gate(tx).Authorize(ctx, actor, authz.CapDestroy, t); err != nil {
			return err
		}
		if err := trackers.Delete(ctx, t.ID); err != nil {
			return err
		}
		destroyed = t
		return nil
	})
	return destroyed, err
}

func (s *trackerService) BulkUpdate(ctx context.Context, actor *domain.User, items []BulkItem) (result *BulkResult[*domain.TimeTracker], err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor), "items": len(items)}
	defer func() { s.observe(ctx, "bulk-update-trackers", startedAt, fields, err) }()

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	// RunBulk visits ids in order, so next tracks the item being processed.
	next := 0
	return RunBulk(ctx, s.gate(s.conn), actor, authz.CapUpdate, ids,
		func(ctx context.Context, id string) (*domain.TimeTracker, error) {
			params := items[next].Params
			next++
			return s.Update(ctx, actor, ByID(id), params)
		})
}

func (s *trackerService) BulkDestroy(ctx context.Context, actor *domain.User, ids []string) (result *BulkResult[*domain.TimeTracker], err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor_id": actorID(actor), "items": len(ids)}
	defer func() { s.observe(ctx, "bulk-destroy-trackers", startedAt, fields, err) }()

	return RunBulk(ctx, s.gate(s.conn), actor, authz.CapDestroy, ids,
		func(ctx context.Context, id string) (*domain.TimeTracker, error) {
			return s.destroy(ctx, actor, ByID(id))
		})
}

func createTracker(ctx context.Context, trackers repository.TrackerRepo, t *domain.TimeTracker) error {
	if err := trackers.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return &ValidationError{Messages: []string{msgAlreadyRunning}, Cause: err}
		}
		return err
	}
	return nil
}
