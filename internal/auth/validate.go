package auth

import (
	"strings"

	"reminder-cli/pkg/models"
)

// ValidateRegistration checks the sign-up form before anything is sent.
func ValidateRegistration(username, phoneNumber, password, repeat string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return models.NewValidationError("Email can't be blank")
	case strings.TrimSpace(phoneNumber) == "":
		return models.NewValidationError("Phone Number can't be blank")
	case strings.TrimSpace(password) == "":
		return models.NewValidationError("Password can't be blank")
	case password != repeat:
		return models.NewValidationError("Passwords don't match")
	}
	return nil
}

// ValidateCredentials checks the sign-in form.
func ValidateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return models.NewValidationError("Email cannot be blank")
	}
	if strings.TrimSpace(password) == "" {
		return models.NewValidationError("Password cannot be blank")
	}
	return nil
}

// ValidatePasswordReset checks the reset form.
func ValidatePasswordReset(code, password, repeat string) error {
	if strings.TrimSpace(code) == "" {
		return models.NewValidationError("No code provided")
	}
	if strings.TrimSpace(password) == "" {
		return models.NewValidationError("Password can't be blank")
	}
	if password != repeat {
		return models.NewValidationError("Passwords don't match")
	}
	return nil
}
