package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

// Hour-before window, relative to the scan time
const (
	HourWindowStart = 55 * time.Minute
	HourWindowEnd   = 60 * time.Minute
)

// Defaults for the per-notification deadlines. The generate budget covers
// the whole provider chain at the default per-attempt timeout.
const (
	DefaultGenerateBudget = 45 * time.Second
	DefaultSendTimeout    = 30 * time.Second
)

// releaseTimeout bounds the marker release after a failed delivery
const releaseTimeout = 5 * time.Second

// ScanReport is the outcome of one reminder scan
type ScanReport struct {
	Checked   int                     `json:"checked"`
	Reminders []models.ReminderResult `json:"reminders"`
	CheckedAt time.Time               `json:"checkedAt"`
}

// Dispatcher sends appointment confirmations and reminders. Each kind is
// claimed through its marker right before the send, so overlapping scans in
// several processes deliver it once. A failed send releases the claim and the
// next scan tries again.
type Dispatcher struct {
	store     storage.Store
	generator *ai.Generator
	outbound  services.Outbound
	access    *services.AccessFilter
	mailer    services.Mailer
	emails    services.EmailComposer
	brand     string
	loc       *time.Location

	generateBudget time.Duration
	sendTimeout    time.Duration

	scans singleflight.Group
}

// DispatcherConfig holds the dispatcher's collaborators
type DispatcherConfig struct {
	Store     storage.Store
	Generator *ai.Generator
	Outbound  services.Outbound
	Access    *services.AccessFilter
	Mailer    services.Mailer
	Emails    services.EmailComposer
	Brand     string
	Location  *time.Location

	// GenerateBudget bounds content generation for one notification. When it
	// runs out the template text is sent instead.
	GenerateBudget time.Duration
	// SendTimeout bounds one delivery attempt on a channel
	SendTimeout time.Duration
}

// NewDispatcher creates a new reminder dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		store:     cfg.Store,
		generator: cfg.Generator,
		outbound:  cfg.Outbound,
		access:    cfg.Access,
		mailer:    cfg.Mailer,
		emails:    cfg.Emails,
		brand:     cfg.Brand,
		loc:       cfg.Location,

		generateBudget: cfg.GenerateBudget,
		sendTimeout:    cfg.SendTimeout,
	}
	if d.mailer == nil {
		d.mailer = services.LogMailer{}
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	if d.generateBudget <= 0 {
		d.generateBudget = DefaultGenerateBudget
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = DefaultSendTimeout
	}
	return d
}

// RunScan sends every reminder due at now. Concurrent calls in this process
// share one scan. Only a failure to load appointments is returned; per
// appointment failures are reported in the results.
func (d *Dispatcher) RunScan(ctx context.Context, now time.Time) (*ScanReport, error) {
	v, err, _ := d.scans.Do("scan", func() (interface{}, error) {
		return d.scan(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ScanReport), nil
}

func (d *Dispatcher) scan(ctx context.Context, now time.Time) (*ScanReport, error) {
	local := now.In(d.loc)
	today := local.Format(models.AppointmentDateLayout)
	tomorrow := local.AddDate(0, 0, 1).Format(models.AppointmentDateLayout)

	appointments, err := d.store.GetUpcomingAppointments(ctx, models.ActiveAppointmentStatuses, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming appointments: %w", err)
	}

	report := &ScanReport{
		Checked:   len(appointments),
		Reminders: []models.ReminderResult{},
		CheckedAt: now,
	}
	for _, a := range appointments {
		if ctx.Err() != nil {
			break
		}
		report.Reminders = append(report.Reminders, d.processAppointment(ctx, a, now, tomorrow)...)
	}

	if len(report.Reminders) > 0 {
		log.Printf("⏰ Reminder scan: checked %d appointments, %d reminders", report.Checked, len(report.Reminders))
	}
	return report, nil
}

func (d *Dispatcher) processAppointment(ctx context.Context, a *models.Appointment, now time.Time, tomorrow string) []models.ReminderResult {
	inHourWindow := false
	if at, err := a.DateTime(d.loc); err != nil {
		log.Printf("⚠️  Skipping hour-before checks: %v", err)
	} else {
		inHourWindow = !at.Before(now.Add(HourWindowStart)) && !at.After(now.Add(HourWindowEnd))
	}

	var results []models.ReminderResult
	if a.AppointmentDate == tomorrow && a.Reminder1DaySentAt == nil && a.ContactPhone != "" {
		if r, ok := d.remindWhatsApp(ctx, a, models.Reminder1Day, ai.NotificationReminder1Day, now); ok {
			results = append(results, r)
		}
	}
	if inHourWindow && a.Reminder1HourSentAt == nil && a.ContactPhone != "" {
		if r, ok := d.remindWhatsApp(ctx, a, models.Reminder1Hour, ai.NotificationReminder1Hour, now); ok {
			results = append(results, r)
		}
	}
	if inHourWindow && a.EmailReminderSentAt == nil && a.ContactEmail != "" {
		if r, ok := d.remindEmail(ctx, a, now); ok {
			results = append(results, r)
		}
	}
	return results
}

// remindWhatsApp reports false when nothing was attempted: the recipient is
// blocked or another scan claimed the reminder first.
func (d *Dispatcher) remindWhatsApp(ctx context.Context, a *models.Appointment, kind models.ReminderKind, nk ai.NotificationKind, now time.Time) (models.ReminderResult, bool) {
	result := models.ReminderResult{
		Type:          models.ChannelWhatsApp,
		AppointmentID: a.ID,
		ReminderKind:  kind,
	}

	blocked, err := d.access.IsBlocked(ctx, a.ContactPhone)
	if err != nil {
		return d.failed(result, err), true
	}
	if blocked {
		log.Printf("🚫 Skipping %s reminder for %s: recipient blocked", kind, a.ID)
		metrics.RecordReminder(string(kind), models.ChannelWhatsApp, metrics.OutcomeSkipped)
		return result, false
	}

	text := d.generate(ctx, nk, a)

	claimed, err := d.store.MarkReminderSent(ctx, a.ID, kind, now)
	if err != nil {
		return d.failed(result, err), true
	}
	if !claimed {
		return result, false
	}

	err = d.sendWhatsApp(ctx, a.ContactPhone, text)
	if err != nil {
		d.release(ctx, a.ID, kind)
	}
	if errors.Is(err, services.ErrRecipientBlocked) {
		metrics.RecordReminder(string(kind), models.ChannelWhatsApp, metrics.OutcomeSkipped)
		return result, false
	}
	if err != nil {
		return d.failed(result, err), true
	}

	log.Printf("✅ %s WhatsApp reminder sent for appointment %s", kind, a.ID)
	metrics.RecordReminder(string(kind), models.ChannelWhatsApp, metrics.OutcomeSuccess)
	result.Success = true
	result.Phone = a.ContactPhone
	return result, true
}

func (d *Dispatcher) remindEmail(ctx context.Context, a *models.Appointment, now time.Time) (models.ReminderResult, bool) {
	result := models.ReminderResult{
		Type:          models.ChannelEmail,
		AppointmentID: a.ID,
		ReminderKind:  models.ReminderEmail,
	}

	claimed, err := d.store.MarkReminderSent(ctx, a.ID, models.ReminderEmail, now)
	if err != nil {
		return d.failed(result, err), true
	}
	if !claimed {
		return result, false
	}

	if err := d.sendReminderEmail(ctx, a); err != nil {
		d.release(ctx, a.ID, models.ReminderEmail)
		return d.failed(result, err), true
	}

	metrics.RecordReminder(string(models.ReminderEmail), models.ChannelEmail, metrics.OutcomeSuccess)
	result.Success = true
	result.Email = a.ContactEmail
	return result, true
}

// generate never fails: past the budget the generator returns the template
func (d *Dispatcher) generate(ctx context.Context, kind ai.NotificationKind, a *models.Appointment) string {
	ctx, cancel := context.WithTimeout(ctx, d.generateBudget)
	defer cancel()
	return d.generator.Notification(ctx, kind, d.details(a))
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, to, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.outbound.Send(ctx, to, text, d.brand)
}

// release clears a claimed marker. It runs even when ctx is already done,
// since an expired scan is one of the reasons a send fails.
func (d *Dispatcher) release(ctx context.Context, id string, kind models.ReminderKind) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := d.store.ReleaseReminder(ctx, id, kind); err != nil {
		log.Printf("❌ Failed to release %s marker for appointment %s: %v", kind, id, err)
		return
	}
	log.Printf("🔁 %s for appointment %s will be retried on the next scan", kind, id)
}

func (d *Dispatcher) failed(result models.ReminderResult, err error) models.ReminderResult {
	log.Printf("❌ %s reminder for appointment %s failed: %v", result.Type, result.AppointmentID, err)
	metrics.RecordReminder(string(result.ReminderKind), result.Type, metrics.OutcomeError)
	result.Success = false
	result.Error = err.Error()
	return result
}

// TriggerManual sends the hour-before style reminder for one appointment on
// every channel it has, regardless of markers.
func (d *Dispatcher) TriggerManual(ctx context.Context, appointmentID string) (*models.ManualReminderResult, error) {
	a, err := d.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	res := &models.ManualReminderResult{Errors: []string{}}
	if a.ContactPhone != "" {
		text := d.generate(ctx, ai.NotificationReminder1Hour, a)
		d.sendManualWhatsApp(ctx, a, text, res)
	}
	if a.ContactEmail != "" {
		if err := d.sendReminderEmail(ctx, a); err != nil {
			res.Errors = append(res.Errors, "Email: "+err.Error())
		} else {
			res.Email = &models.ChannelDelivery{To: a.ContactEmail}
		}
	}
	return res, nil
}

// SendConfirmation sends the booking confirmation once per appointment.
// Appointments that are no longer active are skipped. When no channel
// delivers, the claim is released so the confirmation can be requested again.
func (d *Dispatcher) SendConfirmation(ctx context.Context, appointmentID string) (*models.ManualReminderResult, error) {
	a, err := d.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	res := &models.ManualReminderResult{Errors: []string{}}
	if !a.IsActive() {
		log.Printf("🚫 Skipping confirmation for %s appointment %s", a.Status, a.ID)
		return skippedConfirmation(a, res), nil
	}

	var text string
	if a.ContactPhone != "" {
		text = d.generate(ctx, ai.NotificationConfirmation, a)
	}

	claimed, err := d.store.MarkReminderSent(ctx, a.ID, models.ReminderConfirmation, time.Now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return skippedConfirmation(a, res), nil
	}

	if a.ContactPhone != "" {
		d.sendManualWhatsApp(ctx, a, text, res)
	}
	if a.ContactEmail != "" {
		email, err := d.emails.Confirmation(a.ContactEmail, d.details(a))
		if err == nil {
			err = d.sendEmail(ctx, email)
		}
		if err != nil {
			res.Errors = append(res.Errors, "Email: "+err.Error())
		} else {
			res.Email = &models.ChannelDelivery{To: a.ContactEmail}
		}
	}

	delivered := (res.WhatsApp != nil && !res.WhatsApp.Skipped) || res.Email != nil
	if !delivered {
		d.release(ctx, a.ID, models.ReminderConfirmation)
	}
	metrics.RecordReminder(string(models.ReminderConfirmation), "all", outcome(len(res.Errors) == 0))
	return res, nil
}

func skippedConfirmation(a *models.Appointment, res *models.ManualReminderResult) *models.ManualReminderResult {
	if a.ContactPhone != "" {
		res.WhatsApp = &models.ChannelDelivery{To: a.ContactPhone, Skipped: true}
	}
	if a.ContactEmail != "" {
		res.Email = &models.ChannelDelivery{To: a.ContactEmail, Skipped: true}
	}
	return res
}

func (d *Dispatcher) sendManualWhatsApp(ctx context.Context, a *models.Appointment, text string, res *models.ManualReminderResult) {
	err := d.sendWhatsApp(ctx, a.ContactPhone, text)
	switch {
	case errors.Is(err, services.ErrRecipientBlocked):
		res.WhatsApp = &models.ChannelDelivery{To: a.ContactPhone, Skipped: true}
	case err != nil:
		res.Errors = append(res.Errors, "WhatsApp: "+err.Error())
	default:
		res.WhatsApp = &models.ChannelDelivery{To: a.ContactPhone}
	}
}

func (d *Dispatcher) sendReminderEmail(ctx context.Context, a *models.Appointment) error {
	email, err := d.emails.Reminder(a.ContactEmail, d.details(a))
	if err != nil {
		return err
	}
	return d.sendEmail(ctx, email)
}

func (d *Dispatcher) sendEmail(ctx context.Context, email services.Email) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.mailer.SendEmail(ctx, email)
}

func (d *Dispatcher) details(a *models.Appointment) ai.NotificationDetails {
	details := ai.NotificationDetails{
		BookingID:       a.ID,
		Name:            a.DisplayName(),
		ServiceName:     a.DisplayService(),
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.AppointmentTime,
		DayDate:         a.AppointmentDate,
	}
	if t, err := time.ParseInLocation(models.AppointmentDateLayout, a.AppointmentDate, d.loc); err == nil {
		details.DayDate = t.Format("Monday, January 2, 2006")
	}
	return details
}

func outcome(ok bool) string {
	if ok {
		return metrics.OutcomeSuccess
	}
	return metrics.OutcomeError
}
