package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/alexanderramin/hourglass/internal/service"
	"github.com/alexanderramin/hourglass/internal/testutil"
	"github.com/alexanderramin/hourglass/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// webhookRecorder is an incoming-webhook stand-in.
type webhookRecorder struct {
	mu       sync.Mutex
	status   int
	payloads []Payload
	hits     atomic.Int32
}

func (w *webhookRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.hits.Add(1)
	var p Payload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &p); err == nil {
		w.mu.Lock()
		w.payloads = append(w.payloads, p)
		w.mu.Unlock()
	}
	rw.WriteHeader(w.status)
	_, _ = rw.Write([]byte("ok"))
}

func (w *webhookRecorder) received() []Payload {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Payload(nil), w.payloads...)
}

type spyAdvancer struct {
	calls atomic.Int32
	inner StatusAdvancer
}

func (s *spyAdvancer) Advance(ctx context.Context, actor *domain.User, issueID int64) (bool, error) {
	s.calls.Add(1)
	if s.inner == nil {
		return false, nil
	}
	return s.inner.Advance(ctx, actor, issueID)
}

// stuckAdvancer blocks until its context gives up, like a write waiting on
// a locked database.
type stuckAdvancer struct{}

func (stuckAdvancer) Advance(ctx context.Context, _ *domain.User, _ int64) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

type panickingLoader struct{}

func (panickingLoader) GetByID(context.Context, int64) (*domain.Issue, error) {
	panic("boom")
}

type fixture struct {
	db      *sql.DB
	issues  *repository.SQLiteIssueRepo
	dev     *domain.User
	issue   *domain.Issue
	hook    *webhookRecorder
	server  *httptest.Server
	logs    *bytes.Buffer
	advance *spyAdvancer
}

func setup(t *testing.T, status int) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	f := &fixture{
		db:     database,
		issues: repository.NewSQLiteIssueRepo(database),
		dev:    testutil.NewTestUser("dev"),
		hook:   &webhookRecorder{status: status},
		logs:   &bytes.Buffer{},
	}
	author := testutil.NewTestUser("ann", testutil.WithName("Ann", "Lee"))
	watcher := testutil.NewTestUser("bob")
	users := repository.NewSQLiteUserRepo(database)
	for _, u := range []*domain.User{f.dev, author, watcher} {
		require.NoError(t, users.Create(ctx, u))
	}
	proj := testutil.NewTestProject("Ops")
	require.NoError(t, repository.NewSQLiteProjectRepo(database).Create(ctx, proj))

	f.issue = testutil.NewTestIssue(proj, author, "Fix login",
		testutil.WithDescription("ping @bob"),
		testutil.WithPriority(2),
		testutil.WithWatchers(watcher),
		testutil.WithDoneRatio(30))
	require.NoError(t, f.issues.Create(ctx, f.issue))

	grants := repository.NewSQLiteGrantRepo(database)
	require.NoError(t, grants.Grant(ctx, f.dev.ID, nil, authz.PermTrackTime))
	require.NoError(t, grants.Grant(ctx, f.dev.ID, &proj.ID, authz.PermEditIssues))
	require.NoError(t, f.issues.AddTransition(ctx, 1, 2))

	policy := workflow.NewPolicy(testutil.NewTestUoW(database), englishLabels(t))
	f.advance = &spyAdvancer{inner: policy}

	f.server = httptest.NewServer(f.hook)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) notifier(t *testing.T, url string, opts ...Option) *Notifier {
	t.Helper()
	cfg := WebhookConfig{
		URL:      url,
		Username: "hourglass",
		Channel:  "#dev",
		IconURL:  "https://example.com/icon.png",
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	opts = append([]Option{WithHTTPClient(f.server.Client()), WithLogger(logger)}, opts...)
	return New(cfg, Linker{HostName: "tracker.example.com", Protocol: "https"},
		f.issues, englishLabels(t), f.advance, opts...)
}

func (f *fixture) tracker() *domain.TimeTracker {
	return testutil.NewTestTracker(f.dev.ID, testutil.WithIssue(f.issue.ID))
}

func (f *fixture) statusOf(t *testing.T) domain.StatusID {
	t.Helper()
	issue, err := f.issues.GetByID(context.Background(), f.issue.ID)
	require.NoError(t, err)
	return issue.StatusID()
}

func TestNotifyStart_PostsPayloadAndAdvances(t *testing.T) {
	f := setup(t, http.StatusOK)
	n := f.notifier(t, f.server.URL)

	n.NotifyStart(context.Background(), f.dev, f.tracker())
	n.Wait()

	got := f.hook.received()
	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, 1, p.LinkNames)
	assert.Equal(t, "#dev", p.Channel)
	assert.Contains(t, p.Text, "[Ops] Ann Lee started work on <https://tracker.example.com/issues/")
	assert.Contains(t, p.Text, "|Task #")
	assert.Contains(t, p.Text, "\nTo: @bob")
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "ping @bob", p.Attachments[0].Text)
	assert.Equal(t, "Normal", p.Attachments[0].Fields[1].Value)
	assert.Equal(t, "30", p.Attachments[0].Fields[2].Value)

	assert.Equal(t, int32(1), f.advance.calls.Load())
	assert.Equal(t, domain.StatusID(2), f.statusOf(t))
	assert.Empty(t, f.logs.String())
}

func TestNotifyStart_DeliveryFailureIsLoggedAndStillAdvances(t *testing.T) {
	f := setup(t, http.StatusInternalServerError)
	n := f.notifier(t, f.server.URL)

	n.NotifyStart(context.Background(), f.dev, f.tracker())
	n.Wait()

	assert.Equal(t, int32(1), f.hook.hits.Load())
	assert.Equal(t, int32(1), f.advance.calls.Load())
	assert.Equal(t, domain.StatusID(2), f.statusOf(t))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(f.logs.Bytes(), &entry))
	assert.Equal(t, "start notification failed", entry["msg"])
	assert.EqualValues(t, f.dev.ID, entry["actor_id"])
	assert.EqualValues(t, f.issue.ID, entry["issue_id"])
	assert.Contains(t, entry["error"], "500")
	assert.Contains(t, entry, "trace_id")
}

func TestNotifyStart_DisabledStillAdvances(t *testing.T) {
	f := setup(t, http.StatusOK)
	n := f.notifier(t, "")

	n.NotifyStart(context.Background(), f.dev, f.tracker())
	n.Wait()

	assert.Zero(t, f.hook.hits.Load())
	assert.Equal(t, int32(1), f.advance.calls.Load())
	assert.Equal(t, domain.StatusID(2), f.statusOf(t))
	assert.Empty(t, f.logs.String())
}

func TestNotifyStart_PanicIsContained(t *testing.T) {
	f := setup(t, http.StatusOK)
	cfg := WebhookConfig{URL: f.server.URL}
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	n := New(cfg, Linker{HostName: "h"}, panickingLoader{}, englishLabels(t), f.advance,
		WithHTTPClient(f.server.Client()), WithLogger(logger))

	n.NotifyStart(context.Background(), f.dev, f.tracker())
	n.Wait()

	assert.Zero(t, f.hook.hits.Load())
	assert.Equal(t, int32(1), f.advance.calls.Load())
	assert.Contains(t, f.logs.String(), "notification panicked: boom")
}

func TestNotifyStart_AdvanceIsBoundedByTimeout(t *testing.T) {
	f := setup(t, http.StatusOK)
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	n := New(WebhookConfig{URL: f.server.URL}, Linker{HostName: "h"}, f.issues, englishLabels(t), stuckAdvancer{},
		WithHTTPClient(f.server.Client()), WithLogger(logger), WithAdvanceTimeout(50*time.Millisecond))

	n.NotifyStart(context.Background(), f.dev, f.tracker())

	done := make(chan struct{})
	go func() {
		n.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return while the status advance was stuck")
	}

	assert.Len(t, f.hook.received(), 1)
	assert.Contains(t, f.logs.String(), "issue status advance failed")
	assert.Contains(t, f.logs.String(), context.DeadlineExceeded.Error())
}

func TestNotifyStart_IgnoresTrackerWithoutIssue(t *testing.T) {
	f := setup(t, http.StatusOK)
	n := f.notifier(t, f.server.URL)

	n.NotifyStart(context.Background(), f.dev, testutil.NewTestTracker(f.dev.ID))
	n.Wait()

	assert.Zero(t, f.hook.hits.Load())
	assert.Zero(t, f.advance.calls.Load())
}

func TestNotifyStart_OutlivesRequestContext(t *testing.T) {
	f := setup(t, http.StatusOK)
	n := f.notifier(t, f.server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.NotifyStart(ctx, f.dev, f.tracker())
	n.Wait()

	assert.Len(t, f.hook.received(), 1)
	assert.Equal(t, domain.StatusID(2), f.statusOf(t))
}

func TestStart_SucceedsWhenWebhookFails(t *testing.T) {
	f := setup(t, http.StatusBadGateway)
	n := f.notifier(t, f.server.URL)
	svc := service.NewTrackerService(f.db, testutil.NewTestUoW(f.db), service.WithNotifier(n))

	issueID := f.issue.ID
	tracker, err := svc.Start(context.Background(), f.dev, &service.TrackerParams{IssueID: &issueID})
	n.Wait()

	require.NoError(t, err)
	require.NotNil(t, tracker.ProjectID)
	assert.Equal(t, f.issue.Project.ID, *tracker.ProjectID)
	assert.Equal(t, int32(1), f.hook.hits.Load())
	assert.Contains(t, f.logs.String(), "start notification failed")

	current, err := svc.Get(context.Background(), f.dev, service.Current())
	require.NoError(t, err)
	assert.Equal(t, tracker.ID, current.ID)
}

func TestNotifyStart_FailureRecordedOnSpan(t *testing.T) {
	f := setup(t, http.StatusInternalServerError)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	n := f.notifier(t, f.server.URL, WithTracer(tp.Tracer("test")))

	n.NotifyStart(context.Background(), f.dev, f.tracker())
	n.Wait()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "notify.start_work", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(f.logs.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
}
