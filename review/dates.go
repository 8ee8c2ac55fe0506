package review

import (
	"context"
	"time"

	"contentreview/models"
)

// Today is the UTC calendar date of now, as UTC midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(day time.Time, days int) time.Time {
	return day.AddDate(0, 0, days)
}

// AdvanceReviewDate sets page.NextReviewDate to today plus the resolved
// period and reports whether a date was set. No settings or a period of zero
// clears the date. Only page is modified; the caller persists it.
func (r *Resolver) AdvanceReviewDate(ctx context.Context, page *models.Page) (bool, error) {
	settings, err := r.ResolveSettings(ctx, page)
	if err != nil {
		return false, err
	}

	if settings == nil || settings.ReviewPeriod() <= 0 {
		page.NextReviewDate = nil
		return false, nil
	}

	next := AddDays(r.Today(), settings.ReviewPeriod())
	page.NextReviewDate = &next
	return true, nil
}

// ReviewDate is the date shown for a page: its own stored date, or for a page
// that has none yet, today plus the period of whatever governs it.
func (r *Resolver) ReviewDate(ctx context.Context, page *models.Page) (*time.Time, error) {
	if page.ContentReviewType.Normalize() == models.ReviewDisabled {
		return nil, nil
	}
	if page.NextReviewDate != nil {
		d := *page.NextReviewDate
		return &d, nil
	}

	settings, err := r.ResolveSettings(ctx, page)
	if err != nil {
		return nil, err
	}
	if settings == nil || settings.ReviewPeriod() <= 0 {
		return nil, nil
	}

	next := AddDays(r.Today(), settings.ReviewPeriod())
	return &next, nil
}

// PreviousSettings is what a page's review fields held before an edit.
type PreviousSettings struct {
	Exists     bool
	Type       models.ReviewType
	PeriodDays int
}

// ApplySettingsChange recalculates page.NextReviewDate before edited review
// settings are saved. Descendants are never touched.
func (r *Resolver) ApplySettingsChange(ctx context.Context, page *models.Page, prev PreviousSettings) error {
	mode := page.ContentReviewType.Normalize()
	page.ContentReviewType = mode

	if mode == models.ReviewDisabled {
		page.NextReviewDate = nil
		return nil
	}

	if !prev.Exists || prev.Type.Normalize() != mode {
		switch mode {
		case models.ReviewCustom:
			r.defaultDateForCustom(page)
		default:
			if err := r.defaultDateForInherited(ctx, page); err != nil {
				return err
			}
		}
	}

	if mode == models.ReviewInherit && page.NextReviewDate == nil {
		if err := r.defaultDateForInherited(ctx, page); err != nil {
			return err
		}
	}

	if prev.Exists && mode == models.ReviewCustom && prev.PeriodDays != page.ReviewPeriodDays {
		page.NextReviewDate = nil
		r.defaultDateForCustom(page)
	}

	return nil
}

func (r *Resolver) defaultDateForCustom(page *models.Page) {
	if page.NextReviewDate != nil {
		return
	}
	if page.ReviewPeriodDays <= 0 {
		return
	}
	next := AddDays(r.Today(), page.ReviewPeriodDays)
	page.NextReviewDate = &next
}

func (r *Resolver) defaultDateForInherited(ctx context.Context, page *models.Page) error {
	settings, err := r.ResolveSettings(ctx, page)
	if err != nil {
		return err
	}

	page.NextReviewDate = nil
	switch s := settings.(type) {
	case *models.Page:
		if s.NextReviewDate != nil {
			d := *s.NextReviewDate
			page.NextReviewDate = &d
		}
	case *models.SiteConfig:
		if s.ReviewPeriodDays > 0 {
			next := AddDays(r.Today(), s.ReviewPeriodDays)
			page.NextReviewDate = &next
		}
	}
	return nil
}
