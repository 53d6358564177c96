package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"reminder-cli/pkg/models"
)

// TokenSource supplies the bearer token for every backend request.
// The session gateway implements it.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

type AlarmClient struct {
	HTTP   *resty.Client
	Config ClientConfig
	tokens TokenSource
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

func New(cfg ClientConfig, tokens TokenSource) *AlarmClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetTimeout(cfg.Timeout)
	r.SetLogger(restyLogger{cfg.Logger})

	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")

	return &AlarmClient{
		HTTP:   r,
		Config: cfg,
		tokens: tokens,
	}
}

// R starts a request carrying the caller's context and the current id
// token in the Authorization header. The token is fetched per request,
// so a refresh that happens in between is picked up.
func (c *AlarmClient) R(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.IDToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.HTTP.R().
		SetContext(ctx).
		SetHeader("Authorization", token).
		SetError(&models.MessageResponse{}), nil
}

// transportError turns a failed call into a *models.TransportError. The
// backend's own message is kept so it can be shown as is.
func transportError(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &models.TransportError{Message: fmt.Sprintf("failed to %s: %v", op, err), Err: err}
	}

	msg := ""
	if body, ok := resp.Error().(*models.MessageResponse); ok && body != nil {
		msg = body.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	if msg == "" {
		msg = resp.Status()
	}
	return &models.TransportError{StatusCode: resp.StatusCode(), Message: msg}
}

// IsAuthFailure reports whether err means the token was rejected.
func IsAuthFailure(err error) bool {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var tErr *models.TransportError
	return errors.As(err, &tErr) && (tErr.StatusCode == 401 || tErr.StatusCode == 403)
}

type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
