package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusSent    = "sent"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// NotificationEvent records one review email attempt.
type NotificationEvent struct {
	ID         uint      `gorm:"primary_key;autoIncrement"`
	RunID      string    `gorm:"not null;index"`
	Kind       string    `gorm:"not null;index"`
	OwnerID    uint      `gorm:"index"`
	Email      string    `gorm:"not null"`
	PagesCount int       `gorm:"not null;default:0"`
	Status     string    `gorm:"not null"`
	Error      *string   // nullable
	CreatedAt  time.Time `gorm:"index"`
}

// AnalyticsModule keeps the notification delivery log in its own database.
type AnalyticsModule struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAnalyticsModule returns nil when db is nil; every method of a nil
// module is a no-op.
func NewAnalyticsModule(db *gorm.DB, logger *zap.Logger) *AnalyticsModule {
	if db == nil {
		logger.Info("analytics database not configured, delivery log disabled")
		return nil
	}

	if err := db.AutoMigrate(&NotificationEvent{}); err != nil {
		logger.Error("failed to migrate notification_events table", zap.Error(err))
		return nil
	}

	logger.Info("analytics module initialized")
	return &AnalyticsModule{db: db, logger: logger}
}

func (a *AnalyticsModule) TrackNotification(ctx context.Context, event NotificationEvent) {
	if a == nil || a.db == nil {
		return
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := a.db.WithContext(ctx).Create(&event).Error; err != nil {
		a.logger.Warn("failed to save notification event",
			zap.String("run_id", event.RunID), zap.String("email", event.Email), zap.Error(err))
	}
}

// RecentEvents returns the newest events first.
func (a *AnalyticsModule) RecentEvents(ctx context.Context, limit int) []NotificationEvent {
	if a == nil || a.db == nil {
		return []NotificationEvent{}
	}

	var events []NotificationEvent
	a.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&events)
	return events
}

// StatusCount is the number of events of one status within a run.
type StatusCount struct {
	Status string
	Count  int64
}

func (a *AnalyticsModule) RunSummary(ctx context.Context, runID string) []StatusCount {
	if a == nil || a.db == nil {
		return []StatusCount{}
	}

	var results []StatusCount
	a.db.WithContext(ctx).Model(&NotificationEvent{}).
		Select("status, COUNT(*) as count").
		Where("run_id = ?", runID).
		Group("status").
		Order("status ASC").
		Scan(&results)
	return results
}

// DayCount is the number of sent emails on one day.
type DayCount struct {
	Date  string
	Count int64
}

// SentByDay returns one entry per day for the last days days, oldest first,
// with zero for days without deliveries.
func (a *AnalyticsModule) SentByDay(ctx context.Context, now time.Time, days int) []DayCount {
	if a == nil || a.db == nil || days <= 0 {
		return []DayCount{}
	}

	startDate := now.AddDate(0, 0, -(days - 1))
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)

	var results []DayCount
	a.db.WithContext(ctx).Model(&NotificationEvent{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("status = ? AND created_at >= ?", StatusSent, start).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Date] = r.Count
	}

	out := make([]DayCount, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DayCount{Date: date, Count: counts[date]}
	}
	return out
}
