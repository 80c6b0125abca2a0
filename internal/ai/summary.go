package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
)

// SummaryStatus tells what the appointment summary could establish
type SummaryStatus int

const (
	SummaryNotLoggedIn SummaryStatus = iota
	SummaryNoAppointments
	SummaryListed
)

// Summary is the appointment data attached to a reply prompt
type Summary struct {
	Status   SummaryStatus
	Upcoming []string // numbered lines, soonest first
}

// NotLoggedInSummary is used when the sender cannot be matched to a client
func NotLoggedInSummary() *Summary {
	return &Summary{Status: SummaryNotLoggedIn}
}

// BuildSummary lists the appointments dated today or later, in loc
func BuildSummary(appointments []*models.Appointment, now time.Time, loc *time.Location) *Summary {
	if len(appointments) == 0 {
		return &Summary{Status: SummaryNoAppointments}
	}

	today := now.In(loc).Format(models.AppointmentDateLayout)
	s := &Summary{Status: SummaryListed}
	for _, a := range appointments {
		if a.AppointmentDate < today {
			continue
		}
		date := a.AppointmentDate
		if t, err := time.ParseInLocation(models.AppointmentDateLayout, a.AppointmentDate, loc); err == nil {
			date = t.Format("Monday, January 2, 2006")
		}
		s.Upcoming = append(s.Upcoming, fmt.Sprintf("%d. %s on %s at %s - Status: %s",
			len(s.Upcoming)+1, a.DisplayService(), date, a.AppointmentTime, a.Status))
	}
	return s
}

// Render formats the summary for the prompt context block
func (s *Summary) Render() string {
	switch s.Status {
	case SummaryNotLoggedIn:
		return "The client could not be identified. Tell them to log in to the app to see their appointments."
	case SummaryNoAppointments:
		return "The client has no appointments booked."
	}

	var b strings.Builder
	b.WriteString("CLIENT'S APPOINTMENTS:\n")
	if len(s.Upcoming) == 0 {
		b.WriteString("\nNo upcoming appointments.\n")
		return b.String()
	}
	b.WriteString("\nUpcoming appointments:\n")
	for _, line := range s.Upcoming {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
