package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/databases"
	templates "github.com/chakshi/chakshi-api/templates/html"
)

// EventHearingReminder is pushed to the case owner for each hearing in the reminder window
const EventHearingReminder = "hearing.reminder"

// DefaultSpec runs the reminder job every morning at 7 AM UTC
const DefaultSpec = "0 7 * * *"

const reminderWindow = 24 * time.Hour

// Mailer sends a single email
type Mailer interface {
	Send(toEmail, toName, subject, htmlContent, plainText string) error
}

// Notifier pushes an event to a connected user
type Notifier interface {
	Notify(userID, event string, data interface{})
}

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer returns nil when no api key is configured
func NewSendGridMailer(apiKey, fromEmail string) *SendGridMailer {
	if apiKey == "" {
		return nil
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Chakshi", fromEmail),
	}
}

// Send implements Mailer
func (m *SendGridMailer) Send(toEmail, toName, subject, htmlContent, plainText string) error {
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(m.from, subject, to, plainText, htmlContent)
	response, err := m.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// Scheduler runs the hearing reminder job
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	CaseDB   databases.CaseDatabase
	Mailer   Mailer
	Notifier Notifier
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. mailer and notifier may be nil.
func NewScheduler(caseDB databases.CaseDatabase, mailer Mailer, notifier Notifier, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		spec:     spec,
		CaseDB:   caseDB,
		Mailer:   mailer,
		Notifier: notifier,
		now:      time.Now,
	}
}

// Start registers the reminder job and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runReminders)
	if err != nil {
		return fmt.Errorf("failed to register hearing reminder job: %w", err)
	}
	s.cron.Start()
	zap.S().Infow("hearing reminder scheduler started", "spec", s.spec)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("hearing reminder scheduler stopped")
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := s.SendHearingReminders(ctx)
	if err != nil {
		zap.S().Errorw("hearing reminder job failed", "error", err)
		return
	}
	zap.S().Infow("hearing reminder job finished", "emails", sent)
}

// SendHearingReminders notifies about every scheduled hearing in the next 24 hours.
// Hearings are grouped into one email per advocate address. It returns the number
// of emails delivered; a failed send is logged and does not stop the others.
func (s *Scheduler) SendHearingReminders(ctx context.Context) (int, error) {
	from := s.now().UTC()
	upcoming, err := databases.UpcomingHearings(ctx, s.CaseDB, from, from.Add(reminderWindow))
	if err != nil {
		return 0, err
	}

	type recipient struct {
		name  string
		lines []templates.ReminderLine
	}
	var order []string
	byEmail := map[string]*recipient{}

	for _, u := range upcoming {
		if s.Notifier != nil && u.OwnerID != "" {
			s.Notifier.Notify(u.OwnerID, EventHearingReminder, u)
		}

		email := strings.ToLower(strings.TrimSpace(u.AdvocateEmail))
		if email == "" {
			continue
		}
		r, ok := byEmail[email]
		if !ok {
			r = &recipient{name: u.AdvocateName}
			byEmail[email] = r
			order = append(order, email)
		}
		r.lines = append(r.lines, templates.ReminderLine{
			CaseNumber: u.CaseNumber,
			CaseTitle:  u.CaseTitle,
			Court:      u.Court,
			Date:       u.Hearing.Date.Time().UTC(),
			Time:       u.Hearing.Time,
			Purpose:    u.Hearing.Purpose,
		})
	}

	if s.Mailer == nil {
		if len(order) > 0 {
			zap.S().Warnw("mailer not configured, skipping hearing reminder emails", "recipients", len(order))
		}
		return 0, nil
	}

	sent := 0
	for _, email := range order {
		r := byEmail[email]
		subject := fmt.Sprintf("Hearing reminder: %d hearing(s) in the next 24 hours", len(r.lines))
		err := s.Mailer.Send(email, r.name, subject,
			templates.RenderHearingReminderEmail(r.name, r.lines),
			templates.HearingReminderText(r.lines))
		if err != nil {
			zap.S().Errorw("failed to send hearing reminder", "email", email, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

var _ Mailer = (*SendGridMailer)(nil)
