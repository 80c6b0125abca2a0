package ai

import (
	"regexp"
	"strings"
)

var (
	greetingWord = regexp.MustCompile(`\b(hello|hi|hey)\b`)
	farewellWord = regexp.MustCompile(`\b(bye|goodbye)\b`)
)

// Fallback picks a fixed reply when no provider produced text. It never
// returns an empty string.
func Fallback(message string, summary *Summary) string {
	lower := strings.ToLower(message)

	if summary != nil && IsAskingAboutAppointments(message) {
		switch summary.Status {
		case SummaryNotLoggedIn:
			return "To view your appointments, please log in to your account first. Once logged in, I can tell you about your upcoming reservations."
		case SummaryNoAppointments:
			return "You don't have any appointments booked yet. Would you like to browse our services and book one?"
		case SummaryListed:
			if len(summary.Upcoming) > 0 {
				return "Here are your upcoming appointments:\n\n" + strings.Join(summary.Upcoming, "\n") +
					"\n\nIs there anything else you'd like to know about the app?"
			}
		}
	}

	if strings.Contains(lower, "where") && (strings.Contains(lower, "book") || strings.Contains(lower, "appointment")) {
		return "To book an appointment in the app: open the *Appointments* tab in the left menu (calendar icon). You'll see our services. Tap *Book Now* on the one you want, then choose a date and time and complete the booking."
	}

	if greetingWord.MatchString(lower) {
		return GreetingMessage
	}

	if strings.Contains(lower, "thank") || strings.Contains(lower, "merci") {
		return "You're welcome! 😊 Is there anything else I can help you with regarding the app?"
	}

	if farewellWord.MatchString(lower) {
		return "Goodbye! 👋 Feel free to come back anytime if you need help with AppointLab."
	}

	return "Thanks for your message! How can I help you with the AppointLab app today? I can assist with booking appointments, checking your reservations, or navigating the app."
}
