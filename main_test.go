package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentreview/cache"
	"contentreview/common"
	"contentreview/database"
	"contentreview/email"
	"contentreview/models"
	"contentreview/review"
	"contentreview/tasks"
)

type fakeMailer struct {
	sent int
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, zap.NewNop()))
	return db
}

func setupDuePage(db *gorm.DB, addr string) {
	owner := &models.User{FirstName: "Alice", Surname: "Tester", Email: addr}
	db.Create(owner)
	today := review.Today(time.Now())
	db.Create(&models.Page{
		Title:             "due",
		Slug:              "due",
		ContentReviewType: models.ReviewCustom,
		ReviewPeriodDays:  10,
		NextReviewDate:    &today,
		OwnerUsers:        []models.User{*owner},
	})
}

func onceDaily(t *testing.T) common.Config {
	old := cache.Root
	cache.Root = t.TempDir()
	t.Cleanup(func() { cache.Root = old })
	return common.Config{AdminEmail: "admin@example.com", OncePerDay: true}
}

func TestRunReviewEmailsStampsCompletedRun(t *testing.T) {
	cfg := onceDaily(t)
	db := setupTestDB(t)
	setupDuePage(db, "alice@example.com")
	mailer := &fakeMailer{}

	require.NoError(t, runReviewEmails(context.Background(), cfg, db, mailer, nil, zap.NewNop()))
	assert.Equal(t, 1, mailer.sent)
	assert.True(t, cache.HasRun(tasks.ReviewEmailsTask, review.Today(time.Now())))

	require.NoError(t, runReviewEmails(context.Background(), cfg, db, mailer, nil, zap.NewNop()))
	assert.Equal(t, 1, mailer.sent)
}

func TestRunReviewEmailsStampsRunWithInvalidRecipients(t *testing.T) {
	cfg := onceDaily(t)
	db := setupTestDB(t)
	setupDuePage(db, "not-an-email")

	err := runReviewEmails(context.Background(), cfg, db, &fakeMailer{}, nil, zap.NewNop())

	var invalid *tasks.InvalidRecipientsError
	require.ErrorAs(t, err, &invalid)
	assert.True(t, cache.HasRun(tasks.ReviewEmailsTask, review.Today(time.Now())))
}

func TestRunReviewEmailsDoesNotStampFailedRun(t *testing.T) {
	cfg := onceDaily(t)
	db := setupTestDB(t)
	setupDuePage(db, "alice@example.com")
	transportErr := errors.New("smtp: connection refused")

	err := runReviewEmails(context.Background(), cfg, db, &fakeMailer{err: transportErr}, nil, zap.NewNop())

	assert.ErrorIs(t, err, transportErr)
	assert.False(t, cache.HasRun(tasks.ReviewEmailsTask, review.Today(time.Now())))

	mailer := &fakeMailer{}
	require.NoError(t, runReviewEmails(context.Background(), cfg, db, mailer, nil, zap.NewNop()))
	assert.Equal(t, 1, mailer.sent)
}

func TestRunReviewEmailsDoesNotStampConfigurationError(t *testing.T) {
	cfg := onceDaily(t)
	cfg.AdminEmail = ""
	db := setupTestDB(t)

	err := runReviewEmails(context.Background(), cfg, db, &fakeMailer{}, nil, zap.NewNop())

	var cfgErr *tasks.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.False(t, cache.HasRun(tasks.ReviewEmailsTask, review.Today(time.Now())))
}
