// Package authz decides whether an actor may perform a capability on a
// tracker, a booking, or the tracker collection as a whole.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
)

// ErrForbidden is wrapped by every denial.
var ErrForbidden = errors.New("forbidden")

// Capability names an action checked against a target.
type Capability string

const (
	CapView    Capability = "view"
	CapCreate  Capability = "create"
	CapUpdate  Capability = "update"
	CapDestroy Capability = "destroy"
	// CapBook is checked only while stopping a tracker that has a project.
	CapBook Capability = "book"
)

// Grant names stored in the grants table.
const (
	PermTrackTime   = "track_time"
	PermViewTracked = "view_tracked_time"
	PermEditTracked = "edit_tracked_time"
	PermBookTime    = "book_time"
	PermEditBooked  = "edit_booked_time"
	PermEditIssues  = "edit_issues"
)

// Collection targets the tracker collection instead of a single record.
// Bulk operations check it once before touching any item.
type Collection struct{}

// Authorizer is the capability check used by the services.
type Authorizer interface {
	Authorize(ctx context.Context, actor *domain.User, capability Capability, target any) error
}

// Gate implements Authorizer over the grants table.
type Gate struct {
	grants repository.GrantRepo
}

// NewGate reads grants through conn. Pass a transaction to have the check
// participate in a unit of work.
func NewGate(conn db.DBTX) *Gate {
	return &Gate{grants: repository.NewSQLiteGrantRepo(conn)}
}

// Authorize returns nil when allowed and an error wrapping ErrForbidden when
// denied. Lookup failures are returned as-is.
func (g *Gate) Authorize(ctx context.Context, actor *domain.User, capability Capability, target any) error {
	if actor == nil {
		return fmt.Errorf("%w: anonymous %s", ErrForbidden, capability)
	}
	if actor.Admin {
		return nil
	}

	var (
		ok  bool
		err error
	)
	switch t := target.(type) {
	case Collection:
		ok, err = g.collection(ctx, actor, capability)
	case *domain.TimeTracker:
		ok, err = g.tracker(ctx, actor, capability, t)
	case *domain.TimeBooking:
		ok, err = g.booking(ctx, actor, capability, t)
	default:
		return fmt.Errorf("%w: %s on unsupported target %T", ErrForbidden, capability, target)
	}
	if err != nil {
		return fmt.Errorf("authorizing %s: %w", capability, err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d may not %s %s", ErrForbidden, actor.ID, capability, describe(target))
	}
	return nil
}

func (g *Gate) collection(ctx context.Context, actor *domain.User, capability Capability) (bool, error) {
	switch capability {
	case CapView:
		return g.grants.HasAnywhere(ctx, actor.ID, PermTrackTime, PermEditTracked, PermViewTracked)
	case CapCreate, CapUpdate, CapDestroy:
		return g.grants.HasAnywhere(ctx, actor.ID, PermTrackTime, PermEditTracked)
	case CapBook:
		return g.grants.HasAnywhere(ctx, actor.ID, PermBookTime, PermEditBooked)
	}
	return false, nil
}

func (g *Gate) tracker(ctx context.Context, actor *domain.User, capability Capability, t *domain.TimeTracker) (bool, error) {
	perm := PermEditTracked
	if t.OwnedBy(actor.ID) {
		perm = PermTrackTime
	}

	var perms []string
	switch capability {
	case CapView:
		perms = []string{perm, PermViewTracked}
	case CapCreate, CapUpdate, CapDestroy:
		perms = []string{perm}
	default:
		return false, nil
	}

	if t.ProjectID != nil {
		return g.grants.HasInProject(ctx, actor.ID, *t.ProjectID, perms...)
	}
	return g.grants.HasAnywhere(ctx, actor.ID, perms...)
}

func (g *Gate) booking(ctx context.Context, actor *domain.User, capability Capability, b *domain.TimeBooking) (bool, error) {
	if capability != CapBook {
		return false, nil
	}
	perm := PermEditBooked
	if b.UserID == actor.ID {
		perm = PermBookTime
	}
	return g.grants.HasInProject(ctx, actor.ID, b.ProjectID, perm)
}

func describe(target any) string {
	switch t := target.(type) {
	case Collection:
		return "time trackers"
	case *domain.TimeTracker:
		return "time tracker " + t.ID
	case *domain.TimeBooking:
		return fmt.Sprintf("time booking on project %d", t.ProjectID)
	}
	return fmt.Sprintf("%T", target)
}
