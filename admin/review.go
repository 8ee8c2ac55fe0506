package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentreview/models"
	"contentreview/review"
	"contentreview/tasks"
)

// pageView is the review state of one page as shown to editors.
type pageView struct {
	ID               uint               `json:"id"`
	Title            string             `json:"title"`
	Slug             string             `json:"slug"`
	Mode             models.ReviewType  `json:"mode"`
	ReviewPeriodDays int                `json:"review_period_days"`
	NextReviewDate   string             `json:"next_review_date"`
	ReviewDate       string             `json:"review_date"`
	SettingsFrom     string             `json:"settings_from"`
	Period           int                `json:"period"`
	OwnerNames       string             `json:"owner_names"`
	OwnerUserIDs     []uint             `json:"owner_user_ids"`
	OwnerGroupIDs    []uint             `json:"owner_group_ids"`
	CanReview        bool               `json:"can_review"`
	LastReviewedAt   string             `json:"last_reviewed_at,omitempty"`
	Reviews          []models.ReviewLog `json:"reviews"`
}

type pageSettingsRequest struct {
	Mode             models.ReviewType `json:"mode" binding:"required,oneof=Inherit Custom Disabled"`
	ReviewPeriodDays int               `json:"review_period_days" binding:"min=0"`
	OwnerUserIDs     []uint            `json:"owner_user_ids"`
	OwnerGroupIDs    []uint            `json:"owner_group_ids"`
}

type reviewRequest struct {
	Note string `json:"note"`
}

type configRequest struct {
	ReviewPeriodDays         *int    `json:"review_period_days" binding:"omitempty,min=0"`
	ReviewFrom               *string `json:"review_from" binding:"omitempty,email"`
	ReviewSubject            *string `json:"review_subject"`
	ReviewSubjectReminder    *string `json:"review_subject_reminder"`
	ReviewBody               *string `json:"review_body"`
	ReviewBodyFirstReminder  *string `json:"review_body_first_reminder"`
	ReviewBodySecondReminder *string `json:"review_body_second_reminder"`
	FirstReviewDaysBefore    *int    `json:"first_review_days_before" binding:"omitempty,min=0"`
	SecondReviewDaysBefore   *int    `json:"second_review_days_before" binding:"omitempty,min=0"`
	OwnerUserIDs             *[]uint `json:"owner_user_ids"`
	OwnerGroupIDs            *[]uint `json:"owner_group_ids"`
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(time.DateOnly)
}

// resolver builds a resolver over the current site config.
func (a *AdminModule) resolver(ctx context.Context) (*review.Resolver, *models.SiteConfig, error) {
	site, err := a.store.LoadSiteConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	return review.NewResolver(a.store, a.store, site).WithClock(a.now), site, nil
}

func (a *AdminModule) loadPage(c *gin.Context) (*models.Page, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page id"})
		return nil, false
	}

	page, err := a.store.FindPage(c.Request.Context(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return nil, false
	}
	if err != nil {
		a.serverError(c, "failed to load page", err)
		return nil, false
	}
	return page, true
}

func (a *AdminModule) serverError(c *gin.Context, msg string, err error) {
	a.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (a *AdminModule) buildPageView(ctx context.Context, resolver *review.Resolver, page *models.Page, user *models.User) (*pageView, error) {
	view := &pageView{
		ID:               page.ID,
		Title:            page.Title,
		Slug:             page.Slug,
		Mode:             page.ContentReviewType.Normalize(),
		ReviewPeriodDays: page.ReviewPeriodDays,
		NextReviewDate:   formatDate(page.NextReviewDate),
		OwnerUserIDs:     []uint{},
		OwnerGroupIDs:    []uint{},
	}
	for _, u := range page.OwnerUsers {
		view.OwnerUserIDs = append(view.OwnerUserIDs, u.ID)
	}
	for _, g := range page.OwnerGroups {
		view.OwnerGroupIDs = append(view.OwnerGroupIDs, g.ID)
	}

	reviewDate, err := resolver.ReviewDate(ctx, page)
	if err != nil {
		return nil, err
	}
	view.ReviewDate = formatDate(reviewDate)

	settings, err := resolver.ResolveSettings(ctx, page)
	if err != nil {
		return nil, err
	}
	switch s := settings.(type) {
	case *models.Page:
		view.SettingsFrom = fmt.Sprintf("page:%d", s.ID)
		view.Period = s.ReviewPeriod()
	case *models.SiteConfig:
		view.SettingsFrom = "site"
		view.Period = s.ReviewPeriod()
	default:
		view.SettingsFrom = "disabled"
	}

	if view.OwnerNames, err = resolver.OwnerNames(ctx, settings); err != nil {
		return nil, err
	}
	if user != nil {
		if view.CanReview, err = resolver.CanBeReviewedBy(ctx, page, user); err != nil {
			return nil, err
		}
	}

	if view.Reviews, err = a.store.ReviewLogs(ctx, page.ID); err != nil {
		return nil, err
	}
	if len(view.Reviews) > 0 {
		view.LastReviewedAt = view.Reviews[0].CreatedAt.UTC().Format(time.RFC3339)
	} else {
		view.Reviews = []models.ReviewLog{}
	}
	return view, nil
}

func (a *AdminModule) showPage(c *gin.Context) {
	ctx := c.Request.Context()
	page, ok := a.loadPage(c)
	if !ok {
		return
	}

	resolver, _, err := a.resolver(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	view, err := a.buildPageView(ctx, resolver, page, currentUser(c))
	if err != nil {
		a.serverError(c, "failed to resolve review settings", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *AdminModule) updatePageSettings(c *gin.Context) {
	ctx := c.Request.Context()
	page, ok := a.loadPage(c)
	if !ok {
		return
	}

	var req pageSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users, err := a.store.FindUsers(ctx, req.OwnerUserIDs)
	if err != nil {
		a.serverError(c, "failed to load owners", err)
		return
	}
	groups, err := a.store.FindGroups(ctx, req.OwnerGroupIDs)
	if err != nil {
		a.serverError(c, "failed to load owner groups", err)
		return
	}
	if len(users) != len(uniqueIDs(req.OwnerUserIDs)) || len(groups) != len(uniqueIDs(req.OwnerGroupIDs)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown owner"})
		return
	}

	resolver, _, err := a.resolver(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	prev := review.PreviousSettings{
		Exists:     true,
		Type:       page.ContentReviewType,
		PeriodDays: page.ReviewPeriodDays,
	}
	page.ContentReviewType = req.Mode
	page.ReviewPeriodDays = req.ReviewPeriodDays
	page.OwnerUsers = users
	page.OwnerGroups = groups

	if err := resolver.ApplySettingsChange(ctx, page, prev); err != nil {
		a.serverError(c, "failed to calculate review date", err)
		return
	}
	if err := a.store.SavePageSettings(ctx, page); err != nil {
		a.serverError(c, "failed to save review settings", err)
		return
	}

	a.logger.Info("review settings updated",
		zap.Uint("page_id", page.ID), zap.String("mode", string(page.ContentReviewType)), zap.String("next_review_date", formatDate(page.NextReviewDate)))

	view, err := a.buildPageView(ctx, resolver, page, currentUser(c))
	if err != nil {
		a.serverError(c, "failed to resolve review settings", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *AdminModule) markReviewed(c *gin.Context) {
	ctx := c.Request.Context()
	page, ok := a.loadPage(c)
	if !ok {
		return
	}

	var req reviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	resolver, _, err := a.resolver(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	user := currentUser(c)
	allowed, err := resolver.CanBeReviewedBy(ctx, page, user)
	if err != nil {
		a.serverError(c, "failed to check reviewers", err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "page cannot be reviewed by you"})
		return
	}

	if _, err := a.store.LogReview(ctx, page.ID, user.ID, req.Note); err != nil {
		a.serverError(c, "failed to log review", err)
		return
	}
	if _, err := resolver.AdvanceReviewDate(ctx, page); err != nil {
		a.serverError(c, "failed to calculate review date", err)
		return
	}
	if err := a.store.SaveReviewDate(ctx, page); err != nil {
		a.serverError(c, "failed to save review date", err)
		return
	}

	a.logger.Info("page reviewed",
		zap.Uint("page_id", page.ID), zap.Uint("reviewer_id", user.ID), zap.String("next_review_date", formatDate(page.NextReviewDate)))

	view, err := a.buildPageView(ctx, resolver, page, user)
	if err != nil {
		a.serverError(c, "failed to resolve review settings", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// duePages lists pages due today that have owners. With ?mine=true only
// pages the current user may review are listed.
func (a *AdminModule) duePages(c *gin.Context) {
	ctx := c.Request.Context()
	resolver, _, err := a.resolver(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	pages, err := a.store.DuePages(ctx, resolver.Today())
	if err != nil {
		a.serverError(c, "failed to load due pages", err)
		return
	}

	var reviewer *models.User
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		reviewer = currentUser(c)
	}

	views := make([]*pageView, 0, len(pages))
	for i := range pages {
		page := &pages[i]
		ok, err := resolver.CanBeReviewedBy(ctx, page, reviewer)
		if err != nil {
			a.serverError(c, "failed to check reviewers", err)
			return
		}
		if !ok {
			continue
		}
		view, err := a.buildPageView(ctx, resolver, page, currentUser(c))
		if err != nil {
			a.serverError(c, "failed to resolve review settings", err)
			return
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"date": resolver.Today().Format(time.DateOnly), "pages": views})
}

func (a *AdminModule) config(c *gin.Context) {
	site, err := a.store.LoadSiteConfig(c.Request.Context())
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}
	c.JSON(http.StatusOK, site)
}

func (a *AdminModule) updateConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, err := a.store.LoadSiteConfig(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	setInt(&site.ReviewPeriodDays, req.ReviewPeriodDays)
	setString(&site.ReviewFrom, req.ReviewFrom)
	setString(&site.ReviewSubject, req.ReviewSubject)
	setString(&site.ReviewSubjectReminder, req.ReviewSubjectReminder)
	setString(&site.ReviewBody, req.ReviewBody)
	setString(&site.ReviewBodyFirstReminder, req.ReviewBodyFirstReminder)
	setString(&site.ReviewBodySecondReminder, req.ReviewBodySecondReminder)
	setInt(&site.FirstReviewDaysBefore, req.FirstReviewDaysBefore)
	setInt(&site.SecondReviewDaysBefore, req.SecondReviewDaysBefore)

	if req.OwnerUserIDs != nil {
		users, err := a.store.FindUsers(ctx, *req.OwnerUserIDs)
		if err != nil {
			a.serverError(c, "failed to load owners", err)
			return
		}
		site.OwnerUsers = users
	}
	if req.OwnerGroupIDs != nil {
		groups, err := a.store.FindGroups(ctx, *req.OwnerGroupIDs)
		if err != nil {
			a.serverError(c, "failed to load owner groups", err)
			return
		}
		site.OwnerGroups = groups
	}

	if err := a.store.SaveSiteConfig(ctx, site); err != nil {
		a.serverError(c, "failed to save site config", err)
		return
	}

	a.logger.Info("site review config updated", zap.Int("review_period_days", site.ReviewPeriodDays))
	c.JSON(http.StatusOK, site)
}

func (a *AdminModule) runReviewEmails(c *gin.Context) {
	ctx := c.Request.Context()
	site, err := a.store.LoadSiteConfig(ctx)
	if err != nil {
		a.serverError(c, "failed to load site config", err)
		return
	}

	ids, err := tasks.RunContentReviewEmails(ctx, tasks.Options{
		Store:      a.store,
		Site:       site,
		Mailer:     a.mailer,
		AdminEmail: a.adminEmail,
		Logger:     a.logger,
		Events:     a.analytics,
		Now:        a.now,
	})

	var cfgErr *tasks.ConfigurationError
	var invalid *tasks.InvalidRecipientsError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success", "runs": a.runReport(ctx, ids)})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "failure", "error": cfgErr.Error()})
	case tasks.Completed(err) && errors.As(err, &invalid):
		c.JSON(http.StatusOK, gin.H{
			"status":             "failure",
			"error":              err.Error(),
			"invalid_recipients": invalidRecipients(err),
			"runs":               a.runReport(ctx, ids),
		})
	default:
		a.serverError(c, "content review emails failed", err)
	}
}

// runReport summarises the delivery events of each run by status.
func (a *AdminModule) runReport(ctx context.Context, ids tasks.RunIDs) gin.H {
	runs := gin.H{
		"emails": gin.H{"id": ids.Emails, "summary": a.analytics.RunSummary(ctx, ids.Emails)},
	}
	if ids.Reminders != "" {
		runs["reminders"] = gin.H{"id": ids.Reminders, "summary": a.analytics.RunSummary(ctx, ids.Reminders)}
	}
	return runs
}

func (a *AdminModule) notifications(c *gin.Context) {
	if a.analytics == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	ctx := c.Request.Context()
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"events":  a.analytics.RecentEvents(ctx, limit),
		"sent":    a.analytics.SentByDay(ctx, a.now(), 14),
	})
}

// invalidRecipients collects the owners listed by every InvalidRecipientsError in err.
func invalidRecipients(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ir, ok := e.(*tasks.InvalidRecipientsError); ok {
			out = append(out, ir.Recipients...)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		walk(errors.Unwrap(e))
	}
	walk(err)
	return out
}

func uniqueIDs(ids []uint) map[uint]bool {
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return seen
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
