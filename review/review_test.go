package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentreview/models"
)

var testNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Group{}, &models.Page{}, &models.ReviewLog{}, &models.SiteConfig{})
	return db
}

func day(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func fmtDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

func inDays(n int) string {
	return AddDays(Today(testNow), n).Format("2006-01-02")
}

func createTestPage(db *gorm.DB, title string, mode models.ReviewType, period int, parent *models.Page, next *time.Time) *models.Page {
	page := &models.Page{
		Title:             title,
		Slug:              title,
		ContentReviewType: mode,
		ReviewPeriodDays:  period,
		NextReviewDate:    next,
	}
	if parent != nil {
		page.ParentID = &parent.ID
	}
	db.Create(page)
	return page
}

func createTestUser(db *gorm.DB, first, email string) *models.User {
	user := &models.User{FirstName: first, Surname: "Tester", Email: email}
	db.Create(user)
	return user
}

func createTestGroup(db *gorm.DB, title string, parent *models.Group, users ...models.User) *models.Group {
	group := &models.Group{Title: title, Users: users}
	if parent != nil {
		group.ParentID = &parent.ID
	}
	db.Create(group)
	return group
}

func newTestResolver(db *gorm.DB, site *models.SiteConfig) (*Resolver, *Store) {
	store := NewStore(db)
	return NewResolver(store, store, site).WithClock(func() time.Time { return testNow }), store
}

func reloadPage(t *testing.T, store *Store, id uint) *models.Page {
	t.Helper()
	page, err := store.FindPage(context.Background(), id)
	require.NoError(t, err)
	return page
}

type fixture struct {
	site     *models.SiteConfig
	custom   *models.Page
	disabled *models.Page
	inherit  *models.Page
	page1    *models.Page
	page11   *models.Page
	page211  *models.Page
	page3111 *models.Page
}

func createFixture(db *gorm.DB) fixture {
	site := &models.SiteConfig{ID: models.SiteConfigID, ReviewPeriodDays: 30}
	db.Create(site)

	f := fixture{site: site}
	f.custom = createTestPage(db, "custom", models.ReviewCustom, 7, nil, day("2010-02-01"))
	f.disabled = createTestPage(db, "disabled", models.ReviewDisabled, 0, nil, nil)
	f.inherit = createTestPage(db, "inherit", models.ReviewInherit, 0, nil, nil)

	f.page1 = createTestPage(db, "page-1", models.ReviewCustom, 5, nil, day("2011-01-01"))
	f.page11 = createTestPage(db, "page-1-1", models.ReviewInherit, 0, f.page1, day("2011-04-12"))

	page2 := createTestPage(db, "page-2", models.ReviewDisabled, 0, nil, nil)
	page21 := createTestPage(db, "page-2-1", models.ReviewInherit, 0, page2, nil)
	f.page211 = createTestPage(db, "page-2-1-1", models.ReviewInherit, 0, page21, nil)

	page3 := createTestPage(db, "page-3", models.ReviewInherit, 0, nil, nil)
	page31 := createTestPage(db, "page-3-1", models.ReviewInherit, 0, page3, nil)
	page311 := createTestPage(db, "page-3-1-1", models.ReviewInherit, 0, page31, nil)
	f.page3111 = createTestPage(db, "page-3-1-1-1", models.ReviewInherit, 0, page311, nil)
	return f
}
