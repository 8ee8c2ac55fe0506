package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PagesDue = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_review_pages_due_total", Help: "Pages picked up by a review task"},
		[]string{"task"},
	)
	PagesAdvanced = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "content_review_pages_advanced_total", Help: "Due pages auto-advanced because a review was already logged"},
	)
	PagesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_review_pages_skipped_total", Help: "Due pages skipped without notification"},
		[]string{"reason"},
	)
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_review_emails_sent_total", Help: "Review emails handed to the transport"},
		[]string{"kind"},
	)
	InvalidRecipients = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "content_review_invalid_recipients_total", Help: "Owners skipped for an invalid email address"},
		[]string{"kind"},
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_review_task_duration_seconds",
			Help:    "Review task run duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task", "status"},
	)
)

var registerOnce sync.Once

func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PagesDue, PagesAdvanced, PagesSkipped, EmailsSent, InvalidRecipients, RunDuration)
	})
}
