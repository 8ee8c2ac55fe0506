package tasks

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"contentreview/analytics"
	"contentreview/email"
	"contentreview/metrics"
	"contentreview/models"
)

type Kind string

const (
	KindReviewDue      Kind = "review-due"
	KindFirstReminder  Kind = "first-reminder"
	KindSecondReminder Kind = "second-reminder"
)

// Mailer is the outgoing transport. *email.EmailService satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

var variablePattern = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9_]*)`)

var layout = template.Must(template.New("review-email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
{{.EmailBody}}
<table cellpadding="4" cellspacing="0" border="1">
<thead><tr><th>Page</th><th>URL</th><th>Review date</th></tr></thead>
<tbody>
{{- range .Pages}}
<tr><td>{{.Title}}</td><td>/{{.Slug}}</td><td>{{.ReviewDate}}</td></tr>
{{- end}}
</tbody>
</table>
<p style="font-size: small;">Sent to {{.Recipient.FirstName}} {{.Recipient.Surname}} &lt;{{.Recipient.Email}}&gt;</p>
</body>
</html>
`))

// PageSummary is the per-page row listed in a review email.
type PageSummary struct {
	ID         uint
	Title      string
	Slug       string
	ReviewDate string
}

type layoutData struct {
	EmailBody template.HTML
	Recipient models.User
	Pages     []PageSummary
}

// Dispatcher renders and sends one email per owner. Owners with an invalid
// address are collected instead of failing the run.
type Dispatcher struct {
	mailer     Mailer
	site       *models.SiteConfig
	adminEmail string
	runID      string
	logger     *zap.Logger
	events     *analytics.AnalyticsModule
	markdown   goldmark.Markdown

	invalid []string
	seen    map[string]bool
}

func NewDispatcher(mailer Mailer, site *models.SiteConfig, adminEmail string, logger *zap.Logger, events *analytics.AnalyticsModule) *Dispatcher {
	return &Dispatcher{
		mailer:     mailer,
		site:       site,
		adminEmail: adminEmail,
		logger:     logger,
		events:     events,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithRendererOptions(htmlrenderer.WithUnsafe()),
		),
		seen: make(map[string]bool),
	}
}

// WithRunID tags delivery events with the run they belong to.
func (d *Dispatcher) WithRunID(runID string) *Dispatcher {
	d.runID = runID
	return d
}

// Sender returns the validated from address.
func (d *Dispatcher) Sender() (string, error) {
	from := d.site.From(d.adminEmail)
	if !email.IsValidAddress(from) {
		return "", &ConfigurationError{Address: from}
	}
	return from, nil
}

// InvalidRecipients returns the skipped owners in the order they were met.
func (d *Dispatcher) InvalidRecipients() []string {
	return append([]string(nil), d.invalid...)
}

func (d *Dispatcher) Notify(ctx context.Context, owner models.User, pages []models.Page, kind Kind) error {
	if !email.IsValidAddress(owner.Email) {
		entry := fmt.Sprintf("%s: %s", owner.Name(), owner.Email)
		if !d.seen[entry] {
			d.seen[entry] = true
			d.invalid = append(d.invalid, entry)
		}
		metrics.InvalidRecipients.WithLabelValues(string(kind)).Inc()
		d.track(ctx, owner, len(pages), kind, analytics.StatusInvalid, nil)
		d.logger.Warn("skipping owner with invalid email",
			zap.Uint("owner_id", owner.ID), zap.String("email", owner.Email), zap.String("kind", string(kind)))
		return nil
	}

	msg, err := d.Render(owner, pages, kind)
	if err != nil {
		return err
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.track(ctx, owner, len(pages), kind, analytics.StatusFailed, err)
		return fmt.Errorf("notify owner %d: %w", owner.ID, err)
	}

	metrics.EmailsSent.WithLabelValues(string(kind)).Inc()
	d.track(ctx, owner, len(pages), kind, analytics.StatusSent, nil)
	d.logger.Info("review email sent",
		zap.Uint("owner_id", owner.ID), zap.Int("pages", len(pages)), zap.String("kind", string(kind)))
	return nil
}

// Render builds the message for owner without sending it.
func (d *Dispatcher) Render(owner models.User, pages []models.Page, kind Kind) (email.Message, error) {
	subject, body := d.templates(kind)
	from := d.site.From(d.adminEmail)

	vars := map[string]string{
		"Subject":     subject,
		"PagesCount":  strconv.Itoa(len(pages)),
		"FromEmail":   from,
		"ToFirstName": owner.FirstName,
		"ToSurname":   owner.Surname,
		"ToEmail":     owner.Email,
	}
	switch kind {
	case KindFirstReminder:
		vars["FirstReminderPagesCount"] = vars["PagesCount"]
	case KindSecondReminder:
		vars["SecondReminderPagesCount"] = vars["PagesCount"]
	}

	var rendered bytes.Buffer
	if err := d.markdown.Convert([]byte(substitute(body, vars)), &rendered); err != nil {
		return email.Message{}, fmt.Errorf("render email body: %w", err)
	}

	summaries := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		summaries = append(summaries, summarize(p))
	}

	data := layoutData{
		EmailBody: template.HTML(rendered.String()),
		Recipient: owner,
		Pages:     summaries,
	}
	var out bytes.Buffer
	if err := layout.Execute(&out, data); err != nil {
		return email.Message{}, fmt.Errorf("render email layout: %w", err)
	}

	values := make(map[string]any, len(vars)+3)
	for k, v := range vars {
		values[k] = v
	}
	values["EmailBody"] = data.EmailBody
	values["Recipient"] = owner
	values["Pages"] = summaries

	return email.Message{
		To:       owner.Email,
		From:     from,
		Subject:  subject,
		HTMLBody: out.String(),
		Data:     values,
	}, nil
}

func (d *Dispatcher) templates(kind Kind) (string, string) {
	switch kind {
	case KindFirstReminder:
		return d.site.SubjectReminder(), d.site.BodyFirstReminder()
	case KindSecondReminder:
		return d.site.SubjectReminder(), d.site.BodySecondReminder()
	default:
		return d.site.Subject(), d.site.Body()
	}
}

func (d *Dispatcher) track(ctx context.Context, owner models.User, count int, kind Kind, status string, sendErr error) {
	event := analytics.NotificationEvent{
		RunID:      d.runID,
		Kind:       string(kind),
		OwnerID:    owner.ID,
		Email:      owner.Email,
		PagesCount: count,
		Status:     status,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		event.Error = &msg
	}
	d.events.TrackNotification(ctx, event)
}

// substitute replaces $Name placeholders with HTML-escaped values. Unknown
// placeholders are left as written.
func substitute(body string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(body, func(match string) string {
		if v, ok := vars[match[1:]]; ok {
			return html.EscapeString(v)
		}
		return match
	})
}

func summarize(p models.Page) PageSummary {
	s := PageSummary{ID: p.ID, Title: p.Title, Slug: p.Slug}
	if p.NextReviewDate != nil {
		s.ReviewDate = p.NextReviewDate.Format(time.DateOnly)
	}
	return s
}
