package ai

import (
	"fmt"
	"regexp"
	"strings"
)

// TopicPolicy decides whether an inbound message is outside what the
// assistant should talk about.
type TopicPolicy interface {
	Name() string
	IsOffTopic(message string) bool
}

var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bporn\b`),
	regexp.MustCompile(`\bsex\b`),
	regexp.MustCompile(`\bdrugs\b`),
	regexp.MustCompile(`\bviolence\b`),
	regexp.MustCompile(`\bhate\b`),
	regexp.MustCompile(`\bdiscriminat`),
	regexp.MustCompile(`\bracist\b`),
	regexp.MustCompile(`\bsexist\b`),
	regexp.MustCompile(`\bharass`),
	regexp.MustCompile(`\billegal\b`),
	regexp.MustCompile(`\bcriminal\b`),
	regexp.MustCompile(`\bterrorist\b`),
}

var conversationalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|bonjour|salut|salam|مرحبا|السلام)`),
	regexp.MustCompile(`^(thanks|thank you|merci|شكرا)`),
	regexp.MustCompile(`^(bye|goodbye|au revoir|مع السلامة)`),
	regexp.MustCompile(`^(ok|okay|yes|no|sure|alright)`),
	regexp.MustCompile(`^(what|how|where|when|can|do|is|are)`),
	regexp.MustCompile(`\?$`),
}

var allowedTopics = []string{
	"account", "register", "sign up", "login", "profile", "appointment", "book",
	"booking", "reservation", "cancel", "reschedule", "view", "help", "app",
	"rdv", "réservation", "compte", "profil", "موعد", "حجز", "تطبيق",
	"time", "date", "schedule", "service", "doctor", "hospital", "clinic",
	"health", "medical", "patient", "visit", "consultation",
}

// verdict applies the shared rules. decided is false when no rule matched.
func verdict(message string) (offTopic, decided bool) {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, p := range unsafePatterns {
		if p.MatchString(lower) {
			return true, true
		}
	}
	for _, p := range conversationalPatterns {
		if p.MatchString(lower) {
			return false, true
		}
	}
	for _, k := range allowedTopics {
		if strings.Contains(lower, k) {
			return false, true
		}
	}
	return false, false
}

// PermissivePolicy only refuses unsafe content; anything unmatched is allowed.
type PermissivePolicy struct{}

func (PermissivePolicy) Name() string { return "permissive" }

func (PermissivePolicy) IsOffTopic(message string) bool {
	off, _ := verdict(message)
	return off
}

// StrictPolicy refuses anything that matches neither the conversational
// patterns nor the allow-list.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return "strict" }

func (StrictPolicy) IsOffTopic(message string) bool {
	off, decided := verdict(message)
	if !decided {
		return true
	}
	return off
}

// PolicyByName returns the policy configured by name
func PolicyByName(name string) (TopicPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "permissive":
		return PermissivePolicy{}, nil
	case "strict":
		return StrictPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown topic policy %q", name)
}

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true,
	"hi there": true, "hello there": true, "hey there": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"bonjour": true, "salut": true, "salam": true,
	"salam alaykoum": true, "salam alaikum": true,
	"مرحبا": true, "السلام": true, "السلام عليكم": true,
}

// IsGreeting reports whether the whole message is a bare greeting
func IsGreeting(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	lower = strings.TrimRight(lower, " !.,?😊👋🙂")
	return greetings[strings.Join(strings.Fields(lower), " ")]
}

var appointmentKeywords = []string{
	"appointment", "reservation", "booking", "booked",
	"rendez-vous", "rdv", "réservation",
	"when", "what time", "my appointment", "my booking",
	"scheduled", "upcoming", "next appointment",
	"موعد", "حجز",
}

// IsAskingAboutAppointments reports whether the message asks about the
// sender's own appointments.
func IsAskingAboutAppointments(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range appointmentKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
