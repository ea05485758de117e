// Package phone normalizes user identifiers and derives locale hints from
// international calling codes.
package phone

import (
	"regexp"
	"strings"
)

var e164 = regexp.MustCompile(`^\+\d{10,15}$`)

// Normalize strips transport prefixes and whitespace, adds a leading "+"
// when missing and validates the result. ok is false for anything that is
// not a plausible international number.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)
	if s != "" && !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	if !e164.MatchString(s) {
		return "", false
	}
	return s, true
}

// Last4 returns the trailing four characters used in receipts and
// notifications.
func Last4(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

// callingCodes maps calling code prefixes to language codes. Longer prefixes
// are checked first.
var callingCodes = []struct {
	prefix string
	lang   string
}{
	{"+244", "pt"}, {"+258", "pt"}, {"+351", "pt"}, {"+55", "pt"},
	{"+233", "en"}, {"+234", "en"}, {"+44", "en"}, {"+61", "en"},
	{"+33", "fr"}, {"+32", "fr"}, {"+41", "fr"},
	{"+34", "es"}, {"+52", "es"}, {"+54", "es"}, {"+56", "es"},
	{"+57", "es"}, {"+51", "es"}, {"+58", "es"},
	{"+1", "en"},
}

// Language guesses the user's language from the calling code, defaulting to
// English.
func Language(phone string) string {
	for _, cc := range callingCodes {
		if strings.HasPrefix(phone, cc.prefix) {
			return cc.lang
		}
	}
	return "en"
}
