package domain

import "strings"

// nationalNumberLength is the length of a phone number without country code
const nationalNumberLength = 10

// Student represents a roster entry (value object)
type Student struct {
	Name  string
	Phone string // digits only
	Class string
}

// NormalizePhone strips everything but digits, so "+91 98765-43210" becomes "919876543210"
func NormalizePhone(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// RecipientID derives the conversation key for a phone number.
// The country code is prepended unless the number already carries it.
func RecipientID(countryCode, phone string) string {
	digits := NormalizePhone(phone)
	if digits == "" {
		return ""
	}
	cc := NormalizePhone(countryCode)
	if len(digits) > nationalNumberLength && strings.HasPrefix(digits, cc) {
		return digits
	}
	return cc + digits
}

// RecipientID returns the student's recipient identifier
func (s *Student) RecipientID(countryCode string) string {
	return RecipientID(countryCode, s.Phone)
}

