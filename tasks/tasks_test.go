package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentreview/email"
	"contentreview/models"
	"contentreview/review"
)

var testNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

type fakeMailer struct {
	mu       sync.Mutex
	messages []email.Message
	err      error
}

func (m *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.To)
	}
	return out
}

// countingStore records how often due pages were queried.
type countingStore struct {
	*review.Store
	dueCalls int
}

func (s *countingStore) DuePages(ctx context.Context, day time.Time) ([]models.Page, error) {
	s.dueCalls++
	return s.Store.DuePages(ctx, day)
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Group{}, &models.Page{}, &models.ReviewLog{}, &models.SiteConfig{})
	return db
}

func day(offset int) *time.Time {
	d := review.AddDays(review.Today(testNow), offset)
	return &d
}

func testSite() *models.SiteConfig {
	site := models.NewSiteConfig()
	site.ReviewPeriodDays = 30
	site.ReviewFrom = "reviews@example.com"
	return site
}

func testOptions(store PageStore, site *models.SiteConfig, mailer Mailer) Options {
	return Options{
		Store:  store,
		Site:   site,
		Mailer: mailer,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return testNow },
	}
}

func createTestUser(db *gorm.DB, first, addr string) *models.User {
	user := &models.User{FirstName: first, Surname: "Tester", Email: addr}
	db.Create(user)
	return user
}

func createTestGroup(db *gorm.DB, title string, users ...models.User) *models.Group {
	group := &models.Group{Title: title, Users: users}
	db.Create(group)
	return group
}

func createOwnedPage(db *gorm.DB, title string, period int, next *time.Time, owners ...models.User) *models.Page {
	page := &models.Page{
		Title:             title,
		Slug:              title,
		ContentReviewType: models.ReviewCustom,
		ReviewPeriodDays:  period,
		NextReviewDate:    next,
		OwnerUsers:        owners,
	}
	db.Create(page)
	return page
}

func reloadPage(t *testing.T, store *review.Store, id uint) *models.Page {
	page, err := store.FindPage(context.Background(), id)
	require.NoError(t, err)
	return page
}

func fmtDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

var errTransport = errors.New("smtp: connection refused")
