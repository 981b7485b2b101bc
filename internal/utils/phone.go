package utils

import "regexp"

var uaPhoneRe = regexp.MustCompile(`^\+380\d{9}$`)

// IsValidUkrainePhone checks the fixed local phone format: +380 followed by
// exactly nine digits.
func IsValidUkrainePhone(phone string) bool {
	return uaPhoneRe.MatchString(phone)
}
