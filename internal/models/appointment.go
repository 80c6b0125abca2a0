package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Appointment is owned by the booking subsystem. The notification pipeline
// only reads it and sets the *SentAt markers once each reminder is delivered.
type Appointment struct {
	ID              string  `json:"id" gorm:"primaryKey"`
	UserID          *string `json:"userId,omitempty" gorm:"index"`
	ContactName     string  `json:"contactName"`
	ContactPhone    string  `json:"contactPhone" gorm:"index"`
	ContactEmail    string  `json:"contactEmail"`
	ServiceName     string  `json:"serviceName"`
	AppointmentDate string  `json:"appointmentDate" gorm:"type:varchar(10);index;not null"` // 2006-01-02
	AppointmentTime string  `json:"appointmentTime" gorm:"type:varchar(5);not null"`        // 15:04
	Status          string  `json:"status" gorm:"index;default:'pending'"`

	// Idempotency markers, cleared again only when a claimed delivery fails
	ConfirmationSentAt  *time.Time `json:"confirmationSentAt" gorm:"column:confirmation_sent_at"`
	Reminder1DaySentAt  *time.Time `json:"reminder1DaySentAt" gorm:"column:reminder1_day_sent_at"`
	Reminder1HourSentAt *time.Time `json:"reminder1HourSentAt" gorm:"column:reminder1_hour_sent_at"`
	EmailReminderSentAt *time.Time `json:"emailReminderSentAt" gorm:"column:email_reminder_sent_at"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Appointment statuses
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusPaid      = "paid"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// ActiveAppointmentStatuses are the statuses that still receive reminders.
var ActiveAppointmentStatuses = []string{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusPaid,
}

// Date layouts used by the booking subsystem
const (
	AppointmentDateLayout = "2006-01-02"
	AppointmentTimeLayout = "15:04"
)

// BeforeCreate generates an ID when the booking subsystem did not provide one
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = fmt.Sprintf("APT%d", time.Now().UnixNano())
	}
	if a.Status == "" {
		a.Status = AppointmentStatusPending
	}
	return nil
}

// DateTime combines the date and time fields in the given location.
func (a *Appointment) DateTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(AppointmentDateLayout+" "+AppointmentTimeLayout,
		a.AppointmentDate+" "+a.AppointmentTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment %s has invalid date/time %q %q: %w",
			a.ID, a.AppointmentDate, a.AppointmentTime, err)
	}
	return t, nil
}

// IsActive reports whether reminders still apply to the appointment.
func (a *Appointment) IsActive() bool {
	for _, s := range ActiveAppointmentStatuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

// DisplayName returns the contact name or a neutral default.
func (a *Appointment) DisplayName() string {
	if a.ContactName != "" {
		return a.ContactName
	}
	return "Customer"
}

// DisplayService returns the service name or a neutral default.
func (a *Appointment) DisplayService() string {
	if a.ServiceName != "" {
		return a.ServiceName
	}
	return "Your Service"
}
