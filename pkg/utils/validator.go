package utils

import (
	"fmt"
	"regexp"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateRiskScore validates a vendor risk score
func ValidateRiskScore(score float64) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("risk score must be between 0 and 100: %.2f", score)
	}
	return nil
}

// SanitizeString removes control characters from user input
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
