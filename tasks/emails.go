// Package tasks holds the scheduled content review jobs: the overdue review
// emails and the advance reminders.
package tasks

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contentreview/analytics"
	"contentreview/metrics"
	"contentreview/models"
	"contentreview/review"
)

const ReviewEmailsTask = "content-review-emails"

// PageStore is what the jobs read and write. *review.Store satisfies it.
type PageStore interface {
	review.Hierarchy
	review.Directory
	DuePages(ctx context.Context, day time.Time) ([]models.Page, error)
	PagesDueOn(ctx context.Context, day time.Time) ([]models.Page, error)
	LatestReviewLog(ctx context.Context, pageID uint) (*models.ReviewLog, error)
	SaveReviewDate(ctx context.Context, page *models.Page) error
}

type Options struct {
	Store      PageStore
	Site       *models.SiteConfig
	Mailer     Mailer
	AdminEmail string
	Logger     *zap.Logger
	Events     *analytics.AnalyticsModule
	Now        func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) resolver() *review.Resolver {
	return review.NewResolver(o.Store, o.Store, o.Site).WithClock(o.now)
}

type ownerPages struct {
	owner models.User
	pages []models.Page
}

// ownerQueue groups pages per owner so each owner gets a single email.
type ownerQueue struct {
	byID map[uint]*ownerPages
}

func newOwnerQueue() *ownerQueue {
	return &ownerQueue{byID: make(map[uint]*ownerPages)}
}

func (q *ownerQueue) add(owner models.User, page models.Page) {
	entry, ok := q.byID[owner.ID]
	if !ok {
		entry = &ownerPages{owner: owner}
		q.byID[owner.ID] = entry
	}
	entry.pages = append(entry.pages, page)
}

func (q *ownerQueue) sorted() []*ownerPages {
	out := make([]*ownerPages, 0, len(q.byID))
	for _, entry := range q.byID {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].owner.ID < out[j].owner.ID })
	return out
}

func (q *ownerQueue) dispatch(ctx context.Context, d *Dispatcher, kind Kind) error {
	for _, entry := range q.sorted() {
		if err := d.Notify(ctx, entry.owner, entry.pages, kind); err != nil {
			return err
		}
	}
	return nil
}

// ReviewEmails notifies the owners of every page that is due for review.
type ReviewEmails struct {
	opts  Options
	runID string
}

func NewReviewEmails(opts Options) *ReviewEmails {
	return &ReviewEmails{opts: opts, runID: uuid.NewString()}
}

func (j *ReviewEmails) RunID() string {
	return j.runID
}

// Run sends one email per owner listing their due pages. Pages reviewed since
// their review date was set are moved to their next date instead. A bad sender
// address fails the run before any page is read; owners with bad addresses
// are reported together at the end.
func (j *ReviewEmails) Run(ctx context.Context) (err error) {
	started := time.Now()
	logger := j.opts.logger().With(zap.String("task", ReviewEmailsTask), zap.String("run_id", j.runID))
	defer func() { observeRun(ReviewEmailsTask, started, err) }()

	dispatcher := NewDispatcher(j.opts.Mailer, j.opts.Site, j.opts.AdminEmail, logger, j.opts.Events).WithRunID(j.runID)
	if _, err := dispatcher.Sender(); err != nil {
		logger.Error("review sender is invalid", zap.Error(err))
		return err
	}

	resolver := j.opts.resolver()
	today := resolver.Today()

	pages, err := j.opts.Store.DuePages(ctx, today)
	if err != nil {
		return err
	}
	metrics.PagesDue.WithLabelValues(ReviewEmailsTask).Add(float64(len(pages)))
	logger.Info("due pages loaded", zap.Int("count", len(pages)), zap.Time("today", today))

	queue := newOwnerQueue()
	for i := range pages {
		page := &pages[i]

		ok, err := resolver.CanBeReviewedBy(ctx, page, nil)
		if err != nil {
			return err
		}
		if !ok {
			metrics.PagesSkipped.WithLabelValues("no-owners").Inc()
			continue
		}

		latest, err := j.opts.Store.LatestReviewLog(ctx, page.ID)
		if err != nil {
			return err
		}
		if latest != nil && !latest.CreatedAt.Before(*page.NextReviewDate) {
			if _, err := resolver.AdvanceReviewDate(ctx, page); err != nil {
				return err
			}
			if err := j.opts.Store.SaveReviewDate(ctx, page); err != nil {
				return err
			}
			metrics.PagesAdvanced.Inc()
			logger.Debug("page already reviewed, review date advanced", zap.Uint("page_id", page.ID))
			continue
		}

		settings, err := resolver.ResolveSettings(ctx, page)
		if err != nil {
			return err
		}
		if settings == nil {
			metrics.PagesSkipped.WithLabelValues("no-settings").Inc()
			continue
		}

		owners, err := resolver.MergeOwners(ctx, settings)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			queue.add(owner, *page)
		}
	}

	logger.Info("notifying owners", zap.Int("owners", len(queue.byID)))
	if err := queue.dispatch(ctx, dispatcher, KindReviewDue); err != nil {
		return err
	}

	if invalid := dispatcher.InvalidRecipients(); len(invalid) > 0 {
		return &InvalidRecipientsError{Recipients: invalid}
	}
	return nil
}

// RunIDs identifies the runs of one content review emails command.
// Reminders is empty when the overdue job stopped the command.
type RunIDs struct {
	Emails    string
	Reminders string
}

// RunContentReviewEmails runs the overdue job and then the reminders. A
// configuration or transport failure stops it; invalid recipients from both
// jobs are joined.
func RunContentReviewEmails(ctx context.Context, opts Options) (RunIDs, error) {
	emails := NewReviewEmails(opts)
	ids := RunIDs{Emails: emails.RunID()}

	err := emails.Run(ctx)
	if !Completed(err) {
		return ids, err
	}

	reminders := NewReminders(opts)
	ids.Reminders = reminders.RunID()
	return ids, errors.Join(err, reminders.Run(ctx))
}

// Completed reports whether a run reached every owner it had to notify: err
// is nil or only reports invalid recipients.
func Completed(err error) bool {
	if err == nil {
		return true
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if !Completed(inner) {
				return false
			}
		}
		return true
	}

	var invalid *InvalidRecipientsError
	return errors.As(err, &invalid)
}

func observeRun(task string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.RunDuration.WithLabelValues(task, status).Observe(time.Since(started).Seconds())
}
