package tasks

import (
	"fmt"
	"strings"
)

// ConfigurationError means the review sender address is unusable. No page is
// processed when it is returned.
type ConfigurationError struct {
	Address string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provided sender email address is invalid: %q", e.Address)
}

// InvalidRecipientsError lists owners, as "Name: email", that were skipped
// because their address failed validation. Every valid owner was still
// notified.
type InvalidRecipientsError struct {
	Recipients []string
}

func (e *InvalidRecipientsError) Error() string {
	if len(e.Recipients) == 1 {
		return "provided email is invalid: " + e.Recipients[0]
	}
	return "provided emails are invalid: " + strings.Join(e.Recipients, ", ")
}
