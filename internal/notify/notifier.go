// Package notify posts a chat message when work on an issue starts and then
// hands the issue to the status workflow.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
)

const tracerName = "github.com/alexanderramin/hourglass/internal/notify"

// IssueLoader loads an issue with the associations the message renders.
type IssueLoader interface {
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
}

// StatusAdvancer moves an issue forward in its workflow.
type StatusAdvancer interface {
	Advance(ctx context.Context, actor *domain.User, issueID int64) (bool, error)
}

// Notifier delivers start notifications in the background. Failures are
// logged and never reach the caller.
type Notifier struct {
	cfg      WebhookConfig
	linker   Linker
	issues   IssueLoader
	labels   i18n.Labels
	advancer StatusAdvancer
	logger   *slog.Logger
	tracer   trace.Tracer

	webhook  *WebhookClient
	setupErr error

	advanceTimeout time.Duration

	wg sync.WaitGroup
}

type Option func(*Notifier)

// WithHTTPClient replaces the system-pool client, e.g. with an httptest
// server's client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.webhook = NewWebhookClientWithHTTP(n.cfg, c)
		n.setupErr = nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(n *Notifier) { n.tracer = t }
}

// WithAdvanceTimeout bounds the status change that follows delivery.
// Defaults to DefaultTimeout.
func WithAdvanceTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.advanceTimeout = d }
}

// New creates a Notifier. advancer may be nil, in which case no status
// change follows a notification.
func New(cfg WebhookConfig, linker Linker, issues IssueLoader, labels i18n.Labels, advancer StatusAdvancer, opts ...Option) *Notifier {
	n := &Notifier{
		cfg:      cfg,
		linker:   linker,
		issues:   issues,
		labels:   labels,
		advancer: advancer,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),

		advanceTimeout: DefaultTimeout,
	}
	n.webhook, n.setupErr = NewWebhookClient(cfg)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyStart schedules delivery for a tracker that references an issue and
// returns immediately. The request context's values are kept but its
// cancellation is not.
func (n *Notifier) NotifyStart(ctx context.Context, actor *domain.User, tracker *domain.TimeTracker) {
	if tracker == nil || tracker.IssueID == nil {
		return
	}
	issueID := *tracker.IssueID
	detached := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.run(detached, actor, issueID)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context, actor *domain.User, issueID int64) {
	ctx, span := n.tracer.Start(ctx, "notify.start_work",
		trace.WithAttributes(
			attribute.Int64("hourglass.issue_id", issueID),
			attribute.Int64("hourglass.actor_id", actorID(actor)),
		))
	defer span.End()

	if err := n.deliver(ctx, issueID); err != nil && !errors.Is(err, ErrDisabled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logFailure(ctx, "start notification failed", actor, issueID, err)
	}

	if n.advancer == nil {
		return
	}
	advanced, err := n.advance(ctx, actor, issueID)
	if err != nil {
		span.RecordError(err)
		n.logFailure(ctx, "issue status advance failed", actor, issueID, err)
		return
	}
	span.SetAttributes(attribute.Bool("hourglass.status_advanced", advanced))
}

func (n *Notifier) deliver(ctx context.Context, issueID int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification panicked: %v", r)
		}
	}()

	if !n.cfg.Enabled() {
		return ErrDisabled
	}
	if n.setupErr != nil {
		return fmt.Errorf("setting up webhook client: %w", n.setupErr)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.timeout())
	defer cancel()

	issue, err := n.issues.GetByID(ctx, issueID)
	if err != nil {
		return fmt.Errorf("loading issue: %w", err)
	}
	payload := BuildMessage(issue, n.linker.IssueURL(issue.ID), n.labels, n.cfg.sender())
	return n.webhook.Post(ctx, payload)
}

func (n *Notifier) advance(ctx context.Context, actor *domain.User, issueID int64) (advanced bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("status advance panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, n.advanceTimeout)
	defer cancel()
	return n.advancer.Advance(ctx, actor, issueID)
}

func (n *Notifier) logFailure(ctx context.Context, msg string, actor *domain.User, issueID int64, err error) {
	n.logger.ErrorContext(ctx, msg,
		slog.Int64("actor_id", actorID(actor)),
		slog.Int64("issue_id", issueID),
		slog.String("error", err.Error()),
		slog.String("trace_id", trace.SpanContextFromContext(ctx).TraceID().String()),
	)
}

func actorID(actor *domain.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
