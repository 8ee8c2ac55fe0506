package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestModule(t *testing.T) *AnalyticsModule {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	module := NewAnalyticsModule(db, zap.NewNop())
	require.NotNil(t, module)
	return module
}

func TestNilModuleIsNoop(t *testing.T) {
	module := NewAnalyticsModule(nil, zap.NewNop())
	ctx := context.Background()

	assert.Nil(t, module)
	module.TrackNotification(ctx, NotificationEvent{RunID: "run", Email: "a@example.com", Status: StatusSent})
	assert.Empty(t, module.RecentEvents(ctx, 10))
	assert.Empty(t, module.RunSummary(ctx, "run"))
	assert.Empty(t, module.SentByDay(ctx, time.Now(), 7))
}

func TestTrackNotificationAndRecentEvents(t *testing.T) {
	module := setupTestModule(t)
	ctx := context.Background()

	module.TrackNotification(ctx, NotificationEvent{
		RunID: "run-1", Kind: "review-due", OwnerID: 1, Email: "a@example.com", PagesCount: 2, Status: StatusSent,
		CreatedAt: time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	})
	module.TrackNotification(ctx, NotificationEvent{
		RunID: "run-1", Kind: "review-due", OwnerID: 2, Email: "broken", PagesCount: 1, Status: StatusInvalid,
		CreatedAt: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	})

	events := module.RecentEvents(ctx, 10)
	require.Len(t, events, 2)
	assert.Equal(t, "broken", events[0].Email)
	assert.Equal(t, "a@example.com", events[1].Email)

	limited := module.RecentEvents(ctx, 1)
	assert.Len(t, limited, 1)
}

func TestRunSummary(t *testing.T) {
	module := setupTestModule(t)
	ctx := context.Background()

	module.TrackNotification(ctx, NotificationEvent{RunID: "run-1", Email: "a@example.com", Status: StatusSent})
	module.TrackNotification(ctx, NotificationEvent{RunID: "run-1", Email: "b@example.com", Status: StatusSent})
	module.TrackNotification(ctx, NotificationEvent{RunID: "run-1", Email: "bad", Status: StatusInvalid})
	module.TrackNotification(ctx, NotificationEvent{RunID: "run-2", Email: "c@example.com", Status: StatusSent})

	summary := module.RunSummary(ctx, "run-1")

	assert.Equal(t, []StatusCount{
		{Status: StatusInvalid, Count: 1},
		{Status: StatusSent, Count: 2},
	}, summary)
}

func TestSentByDayFillsGaps(t *testing.T) {
	module := setupTestModule(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	module.TrackNotification(ctx, NotificationEvent{RunID: "r", Email: "a@example.com", Status: StatusSent, CreatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)})
	module.TrackNotification(ctx, NotificationEvent{RunID: "r", Email: "b@example.com", Status: StatusSent, CreatedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)})
	module.TrackNotification(ctx, NotificationEvent{RunID: "r", Email: "c@example.com", Status: StatusSent, CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)})
	module.TrackNotification(ctx, NotificationEvent{RunID: "r", Email: "bad", Status: StatusInvalid, CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)})

	days := module.SentByDay(ctx, now, 3)

	assert.Equal(t, []DayCount{
		{Date: "2026-10-15", Count: 1},
		{Date: "2026-10-16", Count: 0},
		{Date: "2026-10-17", Count: 2},
	}, days)
}
