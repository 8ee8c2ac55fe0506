package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentreview/admin"
	"contentreview/analytics"
	"contentreview/cache"
	"contentreview/common"
	"contentreview/database"
	"contentreview/email"
	"contentreview/metrics"
	"contentreview/models"
	"contentreview/review"
	"contentreview/tasks"
)

const stampMaxAge = 30 * 24 * time.Hour

func main() {
	cfg := common.LoadConfig()

	logger, err := common.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := common.ConnectDb(cfg.DBFile, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	metrics.MustRegister()
	events := analytics.NewAnalyticsModule(common.ConnectAnalyticsDb(cfg.AnalyticsDBFile, logger), logger)
	mailer := email.NewEmailService(cfg.SMTP, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case tasks.ReviewEmailsTask:
		if err := runReviewEmails(ctx, cfg, db, mailer, events, logger); err != nil {
			logger.Error("content review emails failed", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
	case "create-user":
		if err := createUser(ctx, db, os.Args[2:]); err != nil {
			logger.Fatal("failed to create user", zap.Error(err))
		}
		logger.Info("user created")
	case "serve":
		serve(ctx, cfg, db, mailer, events, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, %s or create-user)\n", command, tasks.ReviewEmailsTask)
		os.Exit(2)
	}
}

func runReviewEmails(ctx context.Context, cfg common.Config, db *gorm.DB, mailer tasks.Mailer, events *analytics.AnalyticsModule, logger *zap.Logger) error {
	today := review.Today(time.Now())
	if cfg.OncePerDay && cache.HasRun(tasks.ReviewEmailsTask, today) {
		logger.Info("content review emails already ran today", zap.Time("day", today))
		return nil
	}

	store := review.NewStore(db)
	site, err := store.LoadSiteConfig(ctx)
	if err != nil {
		return err
	}

	ids, err := tasks.RunContentReviewEmails(ctx, tasks.Options{
		Store:      store,
		Site:       site,
		Mailer:     mailer,
		AdminEmail: cfg.AdminEmail,
		Logger:     logger,
		Events:     events,
	})
	logger.Info("content review emails finished",
		zap.String("emails_run_id", ids.Emails), zap.String("reminders_run_id", ids.Reminders))

	// owners left unnotified must be retried on the next invocation
	if !tasks.Completed(err) {
		return err
	}

	if cfg.OncePerDay {
		if stampErr := cache.MarkRun(tasks.ReviewEmailsTask, today, time.Now().UTC().Format(time.RFC3339)); stampErr != nil {
			logger.Warn("failed to write run stamp", zap.Error(stampErr))
		}
		if clearErr := cache.ClearOldStamps(stampMaxAge); clearErr != nil {
			logger.Warn("failed to clear old run stamps", zap.Error(clearErr))
		}
	}
	return err
}

func createUser(ctx context.Context, db *gorm.DB, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: create-user <email> <password> [first name] [surname]")
	}

	user := &models.User{Email: args[0]}
	if len(args) > 2 {
		user.FirstName = args[2]
	}
	if len(args) > 3 {
		user.Surname = args[3]
	}
	if !email.IsValidAddress(user.Email) {
		return fmt.Errorf("invalid email %q", user.Email)
	}
	return admin.CreateUser(ctx, db, user, args[1])
}

func serve(ctx context.Context, cfg common.Config, db *gorm.DB, mailer *email.EmailService, events *analytics.AnalyticsModule, logger *zap.Logger) {
	if cfg.SessionSecret == "" {
		logger.Fatal("SESSION_SECRET environment variable not set")
	}

	router := gin.New()
	router.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("contentreview-session", store))

	adminModule := admin.NewAdminModule(db, events, mailer, cfg.AdminEmail, logger)
	adminModule.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
