package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contentreview/metrics"
	"contentreview/review"
)

const ReviewRemindersTask = "content-review-reminders"

// Reminders warns owners ahead of a page's review date, once at each of the
// site config's lead times.
type Reminders struct {
	opts  Options
	runID string
}

func NewReminders(opts Options) *Reminders {
	return &Reminders{opts: opts, runID: uuid.NewString()}
}

func (j *Reminders) RunID() string {
	return j.runID
}

func (j *Reminders) Run(ctx context.Context) (err error) {
	started := time.Now()
	logger := j.opts.logger().With(zap.String("task", ReviewRemindersTask), zap.String("run_id", j.runID))
	defer func() { observeRun(ReviewRemindersTask, started, err) }()

	dispatcher := NewDispatcher(j.opts.Mailer, j.opts.Site, j.opts.AdminEmail, logger, j.opts.Events).WithRunID(j.runID)
	if _, err := dispatcher.Sender(); err != nil {
		logger.Error("review sender is invalid", zap.Error(err))
		return err
	}

	resolver := j.opts.resolver()
	today := resolver.Today()

	leads := []struct {
		days int
		kind Kind
	}{
		{j.opts.Site.FirstReviewDaysBefore, KindFirstReminder},
		{j.opts.Site.SecondReviewDaysBefore, KindSecondReminder},
	}

	for _, lead := range leads {
		if lead.days <= 0 {
			continue
		}
		if err := j.remind(ctx, resolver, dispatcher, review.AddDays(today, lead.days), lead.kind, logger); err != nil {
			return err
		}
	}

	if invalid := dispatcher.InvalidRecipients(); len(invalid) > 0 {
		return &InvalidRecipientsError{Recipients: invalid}
	}
	return nil
}

func (j *Reminders) remind(ctx context.Context, resolver *review.Resolver, dispatcher *Dispatcher, target time.Time, kind Kind, logger *zap.Logger) error {
	pages, err := j.opts.Store.PagesDueOn(ctx, target)
	if err != nil {
		return err
	}
	metrics.PagesDue.WithLabelValues(ReviewRemindersTask).Add(float64(len(pages)))
	logger.Info("upcoming pages loaded", zap.String("kind", string(kind)), zap.Int("count", len(pages)), zap.Time("due", target))

	queue := newOwnerQueue()
	for i := range pages {
		page := &pages[i]

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
		if len(owners) == 0 {
			metrics.PagesSkipped.WithLabelValues("no-owners").Inc()
			continue
		}
		for _, owner := range owners {
			queue.add(owner, *page)
		}
	}

	return queue.dispatch(ctx, dispatcher, kind)
}
