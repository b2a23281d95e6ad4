package service

import (
	"context"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/domain"
)

// BulkItem is one entry of a bulk update.
type BulkItem struct {
	ID     string
	Params *TrackerParams
}

// BulkStatus frames a bulk result as a whole.
type BulkStatus string

const (
	BulkSucceeded BulkStatus = "succeeded"
	BulkPartial   BulkStatus = "partial"
	BulkFailed    BulkStatus = "failed"
)

// Outcome is the tagged result for one input id: Entity on success, Errors
// on failure.
type Outcome[T any] struct {
	ID     string
	Entity T
	Errors []string
}

// OK reports whether the item succeeded.
func (o Outcome[T]) OK() bool {
	return len(o.Errors) == 0
}

// BulkResult keeps one outcome per input id, in input order.
type BulkResult[T any] struct {
	Outcomes []Outcome[T]
}

// Status derives the overall framing. An empty batch counts as succeeded.
func (r *BulkResult[T]) Status() BulkStatus {
	var failed int
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return BulkSucceeded
	case failed == len(r.Outcomes):
		return BulkFailed
	}
	return BulkPartial
}

// Succeeded returns the successful outcomes in input order.
func (r *BulkResult[T]) Succeeded() []Outcome[T] {
	return r.filter(true)
}

// Failed returns the failed outcomes in input order.
func (r *BulkResult[T]) Failed() []Outcome[T] {
	return r.filter(false)
}

func (r *BulkResult[T]) filter(ok bool) []Outcome[T] {
	out := make([]Outcome[T], 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() == ok {
			out = append(out, o)
		}
	}
	return out
}

// RunBulk checks capability on the collection once, then runs op for each id
// in order. A failing item is recorded and the batch continues; only the
// collection check aborts the call.
func RunBulk[T any](
	ctx context.Context,
	auth authz.Authorizer,
	actor *domain.User,
	capability authz.Capability,
	ids []string,
	op func(ctx context.Context, id string) (T, error),
) (*BulkResult[T], error) {
	if err := auth.Authorize(ctx, actor, capability, authz.Collection{}); err != nil {
		return nil, err
	}

	result := &BulkResult[T]{Outcomes: make([]Outcome[T], 0, len(ids))}
	for _, id := range ids {
		entity, err := op(ctx, id)
		outcome := Outcome[T]{ID: id}
		if err != nil {
			outcome.Errors = ErrorMessages(err)
		} else {
			outcome.Entity = entity
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}
