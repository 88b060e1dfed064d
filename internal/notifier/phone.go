package notifier

import (
	"regexp"
	"strings"
)

// JIDSuffix is the provider's address domain for individual recipients.
const JIDSuffix = "@s.whatsapp.net"

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips every non-digit character from a free-form phone string.
func Digits(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidPhone reports whether the phone has a plausible digit count
// (10 to 13, with or without the country code).
func ValidPhone(phone string) bool {
	n := len(Digits(phone))
	return n >= 10 && n <= 13
}

// NormalizeAddress converts a free-form phone string into the provider
// address: digits only, country code prepended when absent, domain suffix
// appended. "(44) 99819-3466" with country code "55" becomes
// "5544998193466@s.whatsapp.net".
func NormalizeAddress(phone, countryCode string) string {
	digits := Digits(phone)
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	return digits + JIDSuffix
}
