package utils

import "strings"

// SubscriberDigits is how many trailing digits identify a local subscriber.
// Comparing on this suffix tolerates country codes and trunk zeros.
const SubscriberDigits = 9

// WhatsApp chat id suffixes
const (
	UserChatSuffix   = "@s.whatsapp.net"
	LegacyChatSuffix = "@c.us"
	GroupChatSuffix  = "@g.us"
)

// IsGroupID reports whether the identifier is a chat handle rather than a number.
func IsGroupID(id string) bool {
	return strings.Contains(id, "@")
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentifier returns group handles trimmed and unchanged, and phone
// numbers as digits without leading zeros. It is idempotent.
func NormalizeIdentifier(id string) string {
	trimmed := strings.TrimSpace(id)
	if IsGroupID(trimmed) {
		return trimmed
	}
	return strings.TrimLeft(Digits(trimmed), "0")
}

// Suffix returns the last SubscriberDigits digits of a phone number. Group
// handles are returned normalized.
func Suffix(id string) string {
	n := NormalizeIdentifier(id)
	if IsGroupID(n) || len(n) <= SubscriberDigits {
		return n
	}
	return n[len(n)-SubscriberDigits:]
}

// SameParticipant compares two identifiers under the subscriber suffix rule.
func SameParticipant(a, b string) bool {
	sa, sb := Suffix(a), Suffix(b)
	return sa != "" && sa == sb
}

// StripChatSuffix turns a user chat id into the bare phone number.
func StripChatSuffix(chatID string) string {
	id := strings.TrimSuffix(chatID, UserChatSuffix)
	return strings.TrimSuffix(id, LegacyChatSuffix)
}

// ChatID turns a recipient into a chat id: handles pass through, numbers get
// the user chat suffix.
func ChatID(to string) string {
	to = strings.TrimSpace(to)
	if IsGroupID(to) {
		return to
	}
	return Digits(to) + UserChatSuffix
}
