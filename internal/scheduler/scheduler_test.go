package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/notifier"
)

type memoryStore struct {
	mu       sync.Mutex
	settings model.ScheduleSettings
	saves    int
	loadErr  error
}

func (m *memoryStore) Load(context.Context) (model.ScheduleSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.loadErr
}

func (m *memoryStore) Save(_ context.Context, settings model.ScheduleSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.saves++
	return nil
}

// ctxStore fails Save when its context is already done
type ctxStore struct {
	memoryStore
}

func (c *ctxStore) Save(ctx context.Context, settings model.ScheduleSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memoryStore.Save(ctx, settings)
}

// stalledNotifier blocks until its context expires
type stalledNotifier struct {
	deadline bool
}

func (s *stalledNotifier) Notify(ctx context.Context, _ model.NotificationPayload) model.NotificationReport {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return model.NotificationReport{Channels: []model.ChannelResult{
		{Channel: model.ChannelWebhook, Error: ctx.Err().Error()},
	}}
}

type memoryHistory struct {
	mu      sync.Mutex
	records []*model.ScheduledCheckRecord
}

func (m *memoryHistory) Append(_ context.Context, record *model.ScheduledCheckRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

type fakeContent struct {
	posts []model.Post
	err   error
	calls int
	limit int
}

func (f *fakeContent) GetRecentPosts(_ context.Context, limit int) ([]model.Post, error) {
	f.calls++
	f.limit = limit
	return f.posts, f.err
}

type fakeChecker struct {
	result *model.LinkCheckResult
	err    error
	block  bool
}

func (f *fakeChecker) CheckPosts(ctx context.Context, _ []model.Post) (*model.LinkCheckResult, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

type failingEmail struct{}

func (failingEmail) SendEmail(context.Context, notifier.EmailMessage) error {
	return errors.New("smtp: 554 rejected")
}

type countingWebhook struct {
	mu    sync.Mutex
	calls int
}

func (c *countingWebhook) SendWebhook(_ context.Context, url string, p model.NotificationPayload) (*model.DeliveryLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &model.DeliveryLog{CheckID: p.SourceRunID, Channel: model.ChannelWebhook, Target: url}, nil
}

var fixedNow = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

func dailySettings() model.ScheduleSettings {
	return model.ScheduleSettings{
		Enabled:            true,
		Frequency:          model.FrequencyDaily,
		TimeOfDay:          "09:00",
		PostsToCheckPerRun: 25,
	}
}

func deadResult() *model.LinkCheckResult {
	return &model.LinkCheckResult{
		TotalLinks:   2,
		WorkingLinks: 1,
		DeadLinks: []model.LinkCheckOutcome{{
			URL:          "https://example.com/404",
			ErrorKind:    model.HTTPErrorKind(404),
			StatusCode:   404,
			SourcePostID: "p1",
		}},
		PostsChecked: 1,
	}
}

func newTestScheduler(store *memoryStore, history *memoryHistory, content *fakeContent, checker Checker, n Notifier) *Scheduler {
	return NewScheduler(store, history, content, checker, n, WithClock(func() time.Time { return fixedNow }))
}

func TestInvoke_DisabledDoesNothing(t *testing.T) {
	settings := dailySettings()
	settings.Enabled = false
	store := &memoryStore{settings: settings}
	history := &memoryHistory{}
	content := &fakeContent{}

	outcome, err := newTestScheduler(store, history, content, &fakeChecker{}, nil).Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateNotDue, outcome.State)
	assert.Zero(t, content.calls)
	assert.Zero(t, store.saves)
	assert.Empty(t, history.records)
}

func TestInvoke_NotDueIsIdempotent(t *testing.T) {
	settings := dailySettings()
	next := fixedNow.Add(time.Hour)
	settings.NextRunAt = &next
	store := &memoryStore{settings: settings}
	history := &memoryHistory{}
	content := &fakeContent{}
	s := newTestScheduler(store, history, content, &fakeChecker{}, nil)

	for i := 0; i < 2; i++ {
		outcome, err := s.Invoke(context.Background(), "test")
		require.NoError(t, err)
		assert.Equal(t, StateNotDue, outcome.State)
	}

	assert.Zero(t, content.calls)
	assert.Zero(t, store.saves)
	assert.Empty(t, history.records)
}

func TestInvoke_CompletedRun(t *testing.T) {
	store := &memoryStore{settings: dailySettings()}
	history := &memoryHistory{}
	content := &fakeContent{posts: []model.Post{{ID: "p1"}}}
	hook := &countingWebhook{}
	n := notifier.New(notifier.Channels{
		Webhook: notifier.WebhookChannel{Enabled: true, URL: "https://hooks.example.com"},
	}, notifier.WithWebhookSender(hook))

	outcome, err := newTestScheduler(store, history, content, &fakeChecker{result: deadResult()}, n).
		Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.NotEmpty(t, outcome.CheckID)
	assert.Equal(t, 25, content.limit)

	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Equal(t, model.CheckStatusCompleted, record.Status)
	assert.Equal(t, outcome.CheckID, record.ID)
	assert.Equal(t, "test", record.TriggeredBy)
	require.NotNil(t, record.Result)
	assert.Len(t, record.Result.DeadLinks, 1)

	require.NotNil(t, outcome.Notification)
	assert.Equal(t, 1, hook.calls)

	require.NotNil(t, store.settings.NextRunAt)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), *store.settings.NextRunAt)
	assert.Equal(t, fixedNow, *store.settings.LastRunAt)
	assert.Equal(t, 1, store.saves)
}

func TestInvoke_NoDeadLinksSkipsNotifier(t *testing.T) {
	store := &memoryStore{settings: dailySettings()}
	hook := &countingWebhook{}
	n := notifier.New(notifier.Channels{
		Webhook: notifier.WebhookChannel{Enabled: true, URL: "https://hooks.example.com"},
	}, notifier.WithWebhookSender(hook))
	clean := &model.LinkCheckResult{TotalLinks: 3, WorkingLinks: 3, DeadLinks: []model.LinkCheckOutcome{}}

	outcome, err := newTestScheduler(store, &memoryHistory{}, &fakeContent{}, &fakeChecker{result: clean}, n).
		Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Nil(t, outcome.Notification)
	assert.Zero(t, hook.calls)
}

func TestInvoke_EmailFailureStillCompletes(t *testing.T) {
	store := &memoryStore{settings: dailySettings()}
	history := &memoryHistory{}
	hook := &countingWebhook{}
	n := notifier.New(notifier.Channels{
		Email:   notifier.EmailChannel{Enabled: true, To: []string{"ops@example.com"}},
		Webhook: notifier.WebhookChannel{Enabled: true, URL: "https://hooks.example.com"},
	}, notifier.WithEmailSender(failingEmail{}), notifier.WithWebhookSender(hook))

	outcome, err := newTestScheduler(store, history, &fakeContent{}, &fakeChecker{result: deadResult()}, n).
		Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	require.Len(t, history.records, 1)
	assert.Equal(t, model.CheckStatusCompleted, history.records[0].Status)
	assert.Equal(t, 1, hook.calls)

	emailResult, ok := outcome.Notification.Result(model.ChannelEmail)
	require.True(t, ok)
	assert.False(t, emailResult.Success)
}

func TestInvoke_ContentFailureRecordsFailedAndAdvances(t *testing.T) {
	store := &memoryStore{settings: dailySettings()}
	history := &memoryHistory{}
	content := &fakeContent{err: errors.New("content api returned 502")}

	outcome, err := newTestScheduler(store, history, content, &fakeChecker{}, nil).
		Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateFailed, outcome.State)
	require.Len(t, history.records, 1)
	assert.Equal(t, model.CheckStatusFailed, history.records[0].Status)
	assert.Contains(t, history.records[0].ErrorMessage, "content api returned 502")
	assert.Nil(t, history.records[0].Result)

	require.NotNil(t, store.settings.NextRunAt)
	assert.True(t, store.settings.NextRunAt.After(fixedNow))
}

func TestInvoke_CancelledRunIsFailed(t *testing.T) {
	store := &memoryStore{settings: dailySettings()}
	history := &memoryHistory{}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	outcome, err := newTestScheduler(store, history, &fakeContent{}, &fakeChecker{block: true}, nil).
		Invoke(ctx, "test")

	require.NoError(t, err)
	assert.Equal(t, StateFailed, outcome.State)
	require.Len(t, history.records, 1)
	assert.Contains(t, history.records[0].ErrorMessage, ErrRunCancelled.Error())
	assert.Equal(t, 1, store.saves)
}

func TestInvoke_LoadErrorIsReturned(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("mongo down")}
	history := &memoryHistory{}

	outcome, err := newTestScheduler(store, history, &fakeContent{}, &fakeChecker{}, nil).
		Invoke(context.Background(), "test")

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Empty(t, history.records)
}

func TestInvoke_SlowNotifierDoesNotBlockSchedule(t *testing.T) {
	store := &ctxStore{memoryStore{settings: dailySettings()}}
	history := &memoryHistory{}
	n := &stalledNotifier{}

	sched := NewScheduler(store, history, &fakeContent{posts: []model.Post{{ID: "p1"}}},
		&fakeChecker{result: deadResult()}, n,
		WithClock(func() time.Time { return fixedNow }),
		WithNotifyTimeout(50*time.Millisecond),
	)

	outcome, err := sched.Invoke(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.True(t, n.deadline)
	assert.Equal(t, 1, store.saves)
	require.NotNil(t, store.settings.NextRunAt)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), *store.settings.NextRunAt)
	require.NotNil(t, outcome.Notification)
	assert.False(t, outcome.Notification.Channels[0].Success)
	assert.Len(t, history.records, 1)
}
