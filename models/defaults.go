package models

import "strings"

const (
	DefaultReviewSubject            = "Page(s) are due for content review"
	DefaultReviewSubjectReminder    = "Page(s) are approaching content review date"
	DefaultReviewBody               = "<h2>Page(s) due for review</h2><p>There are $PagesCount pages that are due for review today by you.</p>"
	DefaultReviewBodyFirstReminder  = "<h2>Page(s) 1 month from review</h2><p>There are $FirstReminderPagesCount pages that are due for review by you 1 month from today.</p>"
	DefaultReviewBodySecondReminder = "<h2>Page(s) 1 week from review</h2><p>There are $SecondReminderPagesCount pages that are due for review by you 1 week from today.</p>"
	DefaultFirstReviewDaysBefore    = 30
	DefaultSecondReviewDaysBefore   = 7
)

// NewSiteConfig returns the singleton row as it is created on first use.
func NewSiteConfig() *SiteConfig {
	return &SiteConfig{
		ID:                       SiteConfigID,
		ReviewSubject:            DefaultReviewSubject,
		ReviewSubjectReminder:    DefaultReviewSubjectReminder,
		ReviewBody:               DefaultReviewBody,
		ReviewBodyFirstReminder:  DefaultReviewBodyFirstReminder,
		ReviewBodySecondReminder: DefaultReviewBodySecondReminder,
		FirstReviewDaysBefore:    DefaultFirstReviewDaysBefore,
		SecondReviewDaysBefore:   DefaultSecondReviewDaysBefore,
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func (s *SiteConfig) Subject() string {
	return valueOrDefault(s.ReviewSubject, DefaultReviewSubject)
}

func (s *SiteConfig) SubjectReminder() string {
	return valueOrDefault(s.ReviewSubjectReminder, DefaultReviewSubjectReminder)
}

func (s *SiteConfig) Body() string {
	return valueOrDefault(s.ReviewBody, DefaultReviewBody)
}

func (s *SiteConfig) BodyFirstReminder() string {
	return valueOrDefault(s.ReviewBodyFirstReminder, DefaultReviewBodyFirstReminder)
}

func (s *SiteConfig) BodySecondReminder() string {
	return valueOrDefault(s.ReviewBodySecondReminder, DefaultReviewBodySecondReminder)
}

// From returns the sender address, falling back to the system admin address.
func (s *SiteConfig) From(adminEmail string) string {
	return strings.TrimSpace(valueOrDefault(s.ReviewFrom, adminEmail))
}
