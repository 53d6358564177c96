package client

import (
	"context"
	"net/url"

	"reminder-cli/pkg/models"
)

// GetAlarms fetches every alarm of the signed-in user
func (c *AlarmClient) GetAlarms(ctx context.Context) ([]models.Alarm, error) {
	var alarms []models.Alarm

	req, err := c.R(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetResult(&alarms).
		Get("/alarms")

	if err != nil || resp.IsError() {
		return nil, transportError(ctx, "get alarms", resp, err)
	}

	return alarms, nil
}

// CreateAlarm posts a new alarm and returns it as stored by the backend,
// including the id it assigned.
func (c *AlarmClient) CreateAlarm(ctx context.Context, payload models.AlarmCreatePayload) (models.Alarm, error) {
	var created models.Alarm

	if payload.Dates == nil {
		payload.Dates = []string{}
	}
	if payload.Crons == nil {
		payload.Crons = []string{}
	}

	req, err := c.R(ctx)
	if err != nil {
		return models.Alarm{}, err
	}

	resp, err := req.
		SetBody(payload).
		SetResult(&created).
		Post("/alarms")

	if err != nil || resp.IsError() {
		return models.Alarm{}, transportError(ctx, "create alarm", resp, err)
	}

	return created, nil
}

// DeleteAlarm removes an alarm by ID
func (c *AlarmClient) DeleteAlarm(ctx context.Context, id string) error {
	req, err := c.R(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete("/alarms/" + url.PathEscape(id))

	if err != nil || resp.IsError() {
		return transportError(ctx, "delete alarm", resp, err)
	}

	return nil
}
