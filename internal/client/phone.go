package client

import (
	"context"

	"reminder-cli/pkg/models"
)

// UpdatePhoneNumber starts a phone number change. The backend texts a
// verification code to the new number and answers with a message.
func (c *AlarmClient) UpdatePhoneNumber(ctx context.Context, phoneNumber string) (string, error) {
	var out models.MessageResponse

	req, err := c.R(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetBody(models.UpdatePhonePayload{PhoneNumber: phoneNumber}).
		SetResult(&out).
		Post("/update-phone-number")

	if err != nil || resp.IsError() {
		return "", transportError(ctx, "update phone number", resp, err)
	}

	return out.Message, nil
}

// VerifyPhoneNumber completes the change with the texted code.
func (c *AlarmClient) VerifyPhoneNumber(ctx context.Context, code string) (string, error) {
	var out models.MessageResponse

	req, err := c.R(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetBody(models.VerifyPhonePayload{VerificationCode: code}).
		SetResult(&out).
		Post("/verify-phone-number")

	if err != nil || resp.IsError() {
		return "", transportError(ctx, "verify phone number", resp, err)
	}

	return out.Message, nil
}
