package users

import "strings"

// MaskEmail keeps the first two characters of the local part and the domain,
// for log lines.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	runes := []rune(email[:at])
	domain := email[at:]
	if len(runes) <= 2 {
		return string(runes) + "***" + domain
	}
	return string(runes[:2]) + "***" + domain
}
