package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"contentreview/email"
	"contentreview/models"
	"contentreview/review"
)

var testNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

const testPassword = "password123"

type fakeMailer struct {
	mu       sync.Mutex
	messages []email.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Group{}, &models.Page{}, &models.ReviewLog{}, &models.SiteConfig{})
	return db
}

func setupTestModule(db *gorm.DB, mailer *fakeMailer) *AdminModule {
	return NewAdminModule(db, nil, mailer, "admin@example.com", zap.NewNop()).
		WithClock(func() time.Time { return testNow })
}

func setupTestRouter(adminModule *AdminModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	adminModule.RegisterRoutes(router)
	return router
}

func createTestUser(db *gorm.DB, first, addr string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	user := &models.User{FirstName: first, Surname: "Tester", Email: addr, PasswordHash: string(hash)}
	db.Create(user)
	return user
}

func day(offset int) *time.Time {
	d := review.AddDays(review.Today(testNow), offset)
	return &d
}

func createTestPage(db *gorm.DB, title string, mode models.ReviewType, period int, next *time.Time, owners ...models.User) *models.Page {
	page := &models.Page{
		Title:             title,
		Slug:              title,
		ContentReviewType: mode,
		ReviewPeriodDays:  period,
		NextReviewDate:    next,
		OwnerUsers:        owners,
	}
	db.Create(page)
	return page
}

func login(t *testing.T, router *gin.Engine, addr string) []*http.Cookie {
	form := url.Values{"email": {addr}, "password": {testPassword}}
	req, _ := http.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func doJSON(router *gin.Engine, method, path string, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
