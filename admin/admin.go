package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"contentreview/analytics"
	"contentreview/models"
	"contentreview/review"
	"contentreview/tasks"
)

const passwordCost = 14

type AdminModule struct {
	db         *gorm.DB
	store      *review.Store
	analytics  *analytics.AnalyticsModule
	mailer     tasks.Mailer
	adminEmail string
	logger     *zap.Logger
	now        func() time.Time
}

func NewAdminModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule, mailer tasks.Mailer, adminEmail string, logger *zap.Logger) *AdminModule {
	return &AdminModule{
		db:         db,
		store:      review.NewStore(db),
		analytics:  analyticsModule,
		mailer:     mailer,
		adminEmail: adminEmail,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for review dates.
func (a *AdminModule) WithClock(now func() time.Time) *AdminModule {
	a.now = now
	return a
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/login", a.loginPost)
	router.GET("/admin/logout", a.logout)

	reviewGroup := router.Group("/admin/review")
	reviewGroup.Use(a.requireAuth)
	{
		reviewGroup.GET("/pages/:id", a.showPage)
		reviewGroup.POST("/pages/:id/settings", a.updatePageSettings)
		reviewGroup.POST("/pages/:id/review", a.markReviewed)
		reviewGroup.GET("/due", a.duePages)
		reviewGroup.GET("/config", a.config)
		reviewGroup.POST("/config", a.updateConfig)
		reviewGroup.POST("/tasks/content-review-emails", a.runReviewEmails)
		reviewGroup.GET("/notifications", a.notifications)
	}
}

func (a *AdminModule) requireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID, ok := session.Get("user_id").(uint)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	user, err := a.store.FindUser(c.Request.Context(), userID)
	if err != nil {
		session.Clear()
		session.Save()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	c.Set("user", user)
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		return v.(*models.User)
	}
	return nil
}

func (a *AdminModule) loginPost(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	user, err := a.store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || !checkPasswordHash(password, user.PasswordHash) {
		a.logger.Info("failed login", zap.String("email", email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		a.logger.Error("failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name(), "email": user.Email})
}

func (a *AdminModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/login")
}

// CreateUser stores a new user with a bcrypt password hash.
func CreateUser(ctx context.Context, db *gorm.DB, user *models.User, password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return db.WithContext(ctx).Create(user).Error
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
