package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
)

// currentToken is the path segment that names the actor's own tracker.
const currentToken = "current"

// TrackerRef identifies a tracker either by id or as the actor's running one.
type TrackerRef struct {
	id      string
	current bool
}

// ByID refers to the tracker with the given id.
func ByID(id string) TrackerRef {
	return TrackerRef{id: id}
}

// Current refers to the actor's own running tracker.
func Current() TrackerRef {
	return TrackerRef{current: true}
}

// ParseTrackerRef maps the literal "current" to Current and anything else to ByID.
func ParseTrackerRef(s string) TrackerRef {
	if s == currentToken {
		return Current()
	}
	return ByID(s)
}

func (r TrackerRef) IsCurrent() bool { return r.current }

func (r TrackerRef) String() string {
	if r.current {
		return currentToken
	}
	return r.id
}

// resolve is the single lookup for a TrackerRef. Both an actor without a
// running tracker and an unknown id yield ErrNotFound.
func resolve(ctx context.Context, trackers repository.TrackerRepo, actor *domain.User, ref TrackerRef) (*domain.TimeTracker, error) {
	var (
		t   *domain.TimeTracker
		err error
	)
	if ref.current {
		if actor == nil {
			return nil, fmt.Errorf("time tracker %s: %w", ref, ErrNotFound)
		}
		t, err = trackers.GetByUser(ctx, actor.ID)
	} else {
		t, err = trackers.GetByID(ctx, ref.id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("time tracker %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading time tracker %s: %w", ref, err)
	}
	return t, nil
}
