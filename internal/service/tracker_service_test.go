package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/hourglass/internal/authz"
	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
	"github.com/alexanderramin/hourglass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// capRecorder collects every capability checked through the gates it wraps.
type capRecorder struct {
	mu   sync.Mutex
	caps []authz.Capability
}

func (r *capRecorder) checked(c authz.Capability) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.caps {
		if got == c {
			return true
		}
	}
	return false
}

func (r *capRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = nil
}

type spyGate struct {
	rec   *capRecorder
	inner authz.Authorizer
}

func (g *spyGate) Authorize(ctx context.Context, actor *domain.User, c authz.Capability, target any) error {
	g.rec.mu.Lock()
	g.rec.caps = append(g.rec.caps, c)
	g.rec.mu.Unlock()
	return g.inner.Authorize(ctx, actor, c, target)
}

type spyNotifier struct {
	mu    sync.Mutex
	calls []*domain.TimeTracker
}

func (n *spyNotifier) NotifyStart(_ context.Context, _ *domain.User, t *domain.TimeTracker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, t)
}

type env struct {
	db       *sql.DB
	svc      TrackerService
	clock    *fakeClock
	gate     *capRecorder
	notifier *spyNotifier
	grants   *repository.SQLiteGrantRepo

	alice    *domain.User
	bob      *domain.User
	admin    *domain.User
	ops      *domain.Project
	dev      *domain.Project
	activity *domain.Activity
	issue    *domain.Issue
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database := testutil.NewTestDB(t)
	return newEnvOn(t, database, testutil.NewTestUoW(database))
}

func newEnvOn(t *testing.T, database *sql.DB, uow db.UnitOfWork) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		db:       database,
		clock:    &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		gate:     &capRecorder{},
		notifier: &spyNotifier{},
		grants:   repository.NewSQLiteGrantRepo(database),
		alice:    testutil.NewTestUser("alice"),
		bob:      testutil.NewTestUser("bob"),
		admin:    testutil.NewTestUser("root", testutil.WithAdmin()),
		ops:      testutil.NewTestProject("Ops"),
		dev:      testutil.NewTestProject("Dev"),
		activity: testutil.NewTestActivity("Development"),
	}
	users := repository.NewSQLiteUserRepo(database)
	for _, u := range []*domain.User{e.alice, e.bob, e.admin} {
		require.NoError(t, users.Create(ctx, u))
	}
	projects := repository.NewSQLiteProjectRepo(database)
	require.NoError(t, projects.Create(ctx, e.ops))
	require.NoError(t, projects.Create(ctx, e.dev))
	require.NoError(t, repository.NewSQLiteActivityRepo(database).Create(ctx, e.activity))
	e.issue = testutil.NewTestIssue(e.ops, e.alice, "Fix login")
	require.NoError(t, repository.NewSQLiteIssueRepo(database).Create(ctx, e.issue))

	require.NoError(t, e.grants.Grant(ctx, e.alice.ID, nil, authz.PermTrackTime))
	require.NoError(t, e.grants.Grant(ctx, e.bob.ID, nil, authz.PermTrackTime))

	e.svc = NewTrackerService(database, uow,
		WithClock(e.clock.Now),
		WithNotifier(e.notifier),
		WithGateFactory(func(conn db.DBTX) authz.Authorizer {
			return &spyGate{rec: e.gate, inner: authz.NewGate(conn)}
		}),
	)
	return e
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func int64Ptr(v int64) *int64 { return &v }

func TestStart_EmptyParamsOwnedByActor(t *testing.T) {
	e := newEnv(t)

	tr, err := e.svc.Start(context.Background(), e.alice, nil)
	require.NoError(t, err)
	assert.Equal(t, e.alice.ID, tr.UserID)
	assert.True(t, tr.Start.Equal(e.clock.Now()))
	assert.Nil(t, tr.ProjectID)
	assert.Empty(t, e.notifier.calls, "no issue, no notification")
}

func TestStart_IgnoresClientStart(t *testing.T) {
	e := newEnv(t)
	clientStart := e.clock.Now().Add(-5 * time.Hour)

	tr, err := e.svc.Start(context.Background(), e.alice, &TrackerParams{Start: &clientStart})
	require.NoError(t, err)
	assert.False(t, tr.Start.Equal(clientStart))
	assert.True(t, tr.Start.Equal(e.clock.Now()))

	stored, err := e.svc.Get(context.Background(), e.alice, Current())
	require.NoError(t, err)
	assert.True(t, stored.Start.Equal(e.clock.Now()))
}

func TestStart_SecondTrackerRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Start(ctx, e.alice, nil)
	require.NoError(t, err)

	_, err = e.svc.Start(ctx, e.alice, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"User already has a running time tracker"}, verr.Messages)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, e.count(t, "time_trackers"))
}

func TestStart_IssueInheritsProjectAndNotifiesAfterCommit(t *testing.T) {
	e := newEnv(t)

	tr, err := e.svc.Start(context.Background(), e.alice, &TrackerParams{IssueID: &e.issue.ID})
	require.NoError(t, err)
	require.NotNil(t, tr.ProjectID)
	assert.Equal(t, e.ops.ID, *tr.ProjectID)

	require.Len(t, e.notifier.calls, 1)
	assert.Equal(t, tr.ID, e.notifier.calls[0].ID)
	assert.Equal(t, 1, e.count(t, "time_trackers"), "notified tracker is committed")
}

func TestStart_FailureDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	long := string(make([]rune, 300))

	_, err := e.svc.Start(context.Background(), e.alice, &TrackerParams{IssueID: &e.issue.ID, Comments: &long})
	require.Error(t, err)
	assert.Empty(t, e.notifier.calls)
}

func TestStart_ValidationMessages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Start(ctx, e.admin, &TrackerParams{
		ProjectID:  &e.dev.ID,
		IssueID:    &e.issue.ID,
		ActivityID: int64Ptr(999),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Issue does not belong to the project", "Activity is invalid"}, verr.Messages)
	assert.Equal(t, "Issue does not belong to the project and Activity is invalid", err.Error())
}

func TestStart_ForeignUserNeedsEditPermission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Start(ctx, e.alice, &TrackerParams{UserID: &e.bob.ID})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	require.NoError(t, e.grants.Grant(ctx, e.alice.ID, nil, authz.PermEditTracked))
	tr, err := e.svc.Start(ctx, e.alice, &TrackerParams{UserID: &e.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, e.bob.ID, tr.UserID)
}

func TestStop_WithoutProject_LogOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Start(ctx, e.alice, &TrackerParams{Comments: strPtr("reading")})
	require.NoError(t, err)
	e.clock.Advance(45 * time.Minute)
	e.gate.reset()

	res, err := e.svc.Stop(ctx, e.alice, Current())
	require.NoError(t, err)
	require.NotNil(t, res.TimeLog)
	assert.Nil(t, res.TimeBooking)
	assert.Equal(t, 0.75, res.TimeLog.Hours())
	assert.Equal(t, "reading", res.TimeLog.Comments)
	assert.False(t, e.gate.checked(authz.CapBook), "no booking check without a project")

	assert.Equal(t, 0, e.count(t, "time_trackers"))
	assert.Equal(t, 1, e.count(t, "time_logs"))
	assert.Equal(t, 0, e.count(t, "time_bookings"))
}

func TestStop_BookingAllowed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.grants.Grant(ctx, e.alice.ID, &e.ops.ID, authz.PermBookTime))

	tr, err := e.svc.Start(ctx, e.alice, &TrackerParams{
		ProjectID:  &e.ops.ID,
		ActivityID: &e.activity.ID,
		Round:      boolPtr(true),
	})
	require.NoError(t, err)
	e.clock.Advance(53 * time.Minute)

	res, err := e.svc.Stop(ctx, e.alice, ByID(tr.ID))
	require.NoError(t, err)
	require.NotNil(t, res.TimeBooking)
	assert.Equal(t, res.TimeLog.ID, res.TimeBooking.TimeLogID)
	assert.Equal(t, e.ops.ID, res.TimeBooking.ProjectID)
	assert.Equal(t, 1.0, res.TimeBooking.Hours(), "53 minutes rounds up to the hour")
	assert.InDelta(t, 0.88, res.TimeLog.Hours(), 0.001)

	assert.Equal(t, 0, e.count(t, "time_trackers"))
	assert.Equal(t, 1, e.count(t, "time_logs"))
	assert.Equal(t, 1, e.count(t, "time_bookings"))
}

func TestStop_BookingDeniedRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tr, err := e.svc.Start(ctx, e.alice, &TrackerParams{ProjectID: &e.ops.ID, ActivityID: &e.activity.ID})
	require.NoError(t, err)
	e.clock.Advance(time.Hour)

	_, err = e.svc.Stop(ctx, e.alice, Current())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.Equal(t, []string{"Time booking is not allowed for this project"}, verr.Messages)

	still, err := e.svc.Get(ctx, e.alice, ByID(tr.ID))
	require.NoError(t, err, "tracker survives a denied stop")
	assert.Equal(t, tr.ID, still.ID)
	assert.Equal(t, 0, e.count(t, "time_logs"))
	assert.Equal(t, 0, e.count(t, "time_bookings"))
}

func TestStop_InvalidLogAndBookingAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.grants.Grant(ctx, e.alice.ID, &e.ops.ID, authz.PermBookTime))

	_, err := e.svc.Start(ctx, e.alice, &TrackerParams{ProjectID: &e.ops.ID})
	require.NoError(t, err)

	// No time has passed and no activity is set.
	_, err = e.svc.Stop(ctx, e.alice, Current())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Stop must be after start", "Activity cannot be blank"}, verr.Messages)
	assert.Equal(t, 1, e.count(t, "time_trackers"))
}

func TestStop_WriteFailureRollsBack(t *testing.T) {
	database := testutil.NewTestDB(t)
	failing := &testutil.FailOnNthExecUoW{DB: database, FailOn: 1, Match: "INSERT INTO time_bookings", Err: errors.New("disk full")}
	e := newEnvOn(t, database, failing)
	ctx := context.Background()
	require.NoError(t, e.grants.Grant(ctx, e.alice.ID, &e.ops.ID, authz.PermBookTime))

	_, err := e.svc.Start(ctx, e.alice, &TrackerParams{ProjectID: &e.ops.ID, ActivityID: &e.activity.ID})
	require.NoError(t, err)
	e.clock.Advance(time.Hour)

	_, err = e.svc.Stop(ctx, e.alice, Current())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, e.count(t, "time_trackers"))
	assert.Equal(t, 0, e.count(t, "time_logs"), "time log insert rolled back")
}

func TestStop_NoRunningTracker(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Stop(context.Background(), e.alice, Current())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ReauthorizesAgainstResult(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.grants.Grant(ctx, e.bob.ID, &e.ops.ID, authz.PermEditTracked))

	tr, err := e.svc.Start(ctx, e.alice, &TrackerParams{ProjectID: &e.ops.ID})
	require.NoError(t, err)

	// Bob may edit Alice's tracker on Ops, but not move it to Dev.
	_, err = e.svc.Update(ctx, e.bob, ByID(tr.ID), &TrackerParams{ProjectID: &e.dev.ID})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	updated, err := e.svc.Update(ctx, e.bob, ByID(tr.ID), &TrackerParams{Comments: strPtr("pairing")})
	require.NoError(t, err)
	assert.Equal(t, "pairing", updated.Comments)
	assert.Equal(t, e.ops.ID, *updated.ProjectID)
}

func TestUpdate_StartIsNotUpdatable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tr, err := e.svc.Start(ctx, e.alice, nil)
	require.NoError(t, err)
	earlier := tr.Start.Add(-time.Hour)

	updated, err := e.svc.Update(ctx, e.alice, Current(), &TrackerParams{Start: &earlier, ProjectID: &e.ops.ID})
	require.NoError(t, err)
	assert.True(t, updated.Start.Equal(tr.Start))

	cleared, err := e.svc.Update(ctx, e.alice, Current(), &TrackerParams{ProjectID: int64Ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, cleared.ProjectID)
}

func TestDestroy_DiscardsWithoutArtifacts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Start(ctx, e.alice, &TrackerParams{ProjectID: &e.ops.ID})
	require.NoError(t, err)

	require.NoError(t, e.svc.Destroy(ctx, e.alice, Current()))
	assert.Equal(t, 0, e.count(t, "time_trackers"))
	assert.Equal(t, 0, e.count(t, "time_logs"))
	assert.ErrorIs(t, e.svc.Destroy(ctx, e.alice, Current()), ErrNotFound)
}

func TestDestroy_ForeignTrackerForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tr, err := e.svc.Start(ctx, e.alice, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, e.svc.Destroy(ctx, e.bob, ByID(tr.ID)), authz.ErrForbidden)
	assert.Equal(t, 1, e.count(t, "time_trackers"))
}

func TestGetAndList_Visibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	alices, err := e.svc.Start(ctx, e.alice, nil)
	require.NoError(t, err)
	_, err = e.svc.Start(ctx, e.bob, nil)
	require.NoError(t, err)

	_, err = e.svc.Get(ctx, e.bob, ByID(alices.ID))
	assert.ErrorIs(t, err, ErrNotFound, "foreign trackers are hidden")

	list, err := e.svc.List(ctx, e.alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alices.ID, list[0].ID)

	all, err := e.svc.List(ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
