package models

// UpdatePhonePayload is the body for POST /update-phone-number
type UpdatePhonePayload struct {
	PhoneNumber string `json:"phone_number"`
}

// VerifyPhonePayload is the body for POST /verify-phone-number
type VerifyPhonePayload struct {
	VerificationCode string `json:"verification_code"`
}

// MessageResponse is the generic {"message": "..."} body the backend
// uses for confirmations and errors.
type MessageResponse struct {
	Message string `json:"message"`
}
