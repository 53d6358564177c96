package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"reminder-cli/pkg/models"
)

// IdentityProvider is the subset of the Cognito user pool API the
// gateway calls. *cognitoidentityprovider.Client satisfies it.
type IdentityProvider interface {
	SignUp(context.Context, *cip.SignUpInput, ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(context.Context, *cip.ConfirmSignUpInput, ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(context.Context, *cip.InitiateAuthInput, ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(context.Context, *cip.GlobalSignOutInput, ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	GetUser(context.Context, *cip.GetUserInput, ...func(*cip.Options)) (*cip.GetUserOutput, error)
	ForgotPassword(context.Context, *cip.ForgotPasswordInput, ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(context.Context, *cip.ConfirmForgotPasswordInput, ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
}

// SessionStore persists the session between runs.
type SessionStore interface {
	Load() models.Session
	Save(models.Session) error
	Clear() error
}

// GatewayConfig identifies the user pool app client.
type GatewayConfig struct {
	ClientID     string
	ClientSecret string // optional
}

// Gateway wraps the identity provider and owns the current session.
type Gateway struct {
	idp    IdentityProvider
	cfg    GatewayConfig
	store  SessionStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	session models.Session
}

// NewGateway creates a gateway and restores any persisted session.
func NewGateway(idp IdentityProvider, cfg GatewayConfig, store SessionStore, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		idp:     idp,
		cfg:     cfg,
		store:   store,
		logger:  logger,
		now:     time.Now,
		session: store.Load(),
	}
}

// LoggedIn reports whether a session exists. It may still need a refresh.
func (g *Gateway) LoggedIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.session.Empty()
}

// Username returns the signed-in username, or "".
func (g *Gateway) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Username
}

func (g *Gateway) secretHash(username string) *string {
	if g.cfg.ClientSecret == "" {
		return nil
	}
	return aws.String(SecretHash(username, g.cfg.ClientID, g.cfg.ClientSecret))
}

// SignUp registers a new user with a phone number attribute. The
// provider sends a confirmation code out of band.
func (g *Gateway) SignUp(ctx context.Context, username, phoneNumber, password string) error {
	_, err := g.idp.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(g.cfg.ClientID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		SecretHash: g.secretHash(username),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("phone_number"), Value: aws.String(phoneNumber)},
		},
	})
	if err != nil {
		return authError("sign up", err)
	}
	g.logger.Info("user registered", "username", username)
	return nil
}

// ConfirmSignUp confirms a registration with the emailed/texted code.
func (g *Gateway) ConfirmSignUp(ctx context.Context, username, code string) error {
	_, err := g.idp.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(g.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       g.secretHash(username),
	})
	if err != nil {
		return authError("confirm sign up", err)
	}
	return nil
}

// Authenticate signs the user in and persists the new session.
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (models.Session, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if h := g.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}

	out, err := g.idp.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(g.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return models.Session{}, authError("authenticate", err)
	}
	if out.AuthenticationResult == nil {
		return models.Session{}, &models.AuthError{
			Op:      "authenticate",
			Message: fmt.Sprintf("unsupported challenge %q", out.ChallengeName),
		}
	}

	s := g.sessionFrom(models.Session{Username: username}, out.AuthenticationResult)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(s); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}
	g.session = s
	g.logger.Info("signed in", "username", username, "expires_at", s.ExpiresAt)
	return s, nil
}

// SignOut revokes the tokens at the provider and always drops the local
// session, even when the revoke call fails.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.AccessToken != "" {
		if _, err := g.idp.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
			AccessToken: aws.String(g.session.AccessToken),
		}); err != nil {
			g.logger.Warn("global sign out failed", "error", err)
		}
	}

	g.session = models.Session{}
	return g.store.Clear()
}

// CurrentUser returns the attributes of the signed-in user, including
// phone_number.
func (g *Gateway) CurrentUser(ctx context.Context) ([]models.UserAttribute, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureFreshLocked(ctx); err != nil {
		return nil, err
	}
	out, err := g.idp.GetUser(ctx, &cip.GetUserInput{
		AccessToken: aws.String(g.session.AccessToken),
	})
	if err != nil {
		return nil, authError("get user", err)
	}

	attrs := make([]models.UserAttribute, 0, len(out.UserAttributes))
	for _, a := range out.UserAttributes {
		attrs = append(attrs, models.UserAttribute{
			Name:  aws.ToString(a.Name),
			Value: aws.ToString(a.Value),
		})
	}
	return attrs, nil
}

// ForgotPassword asks the provider to send a reset code.
func (g *Gateway) ForgotPassword(ctx context.Context, username string) error {
	_, err := g.idp.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(g.cfg.ClientID),
		Username:   aws.String(username),
		SecretHash: g.secretHash(username),
	})
	if err != nil {
		return authError("forgot password", err)
	}
	return nil
}

// ResetPassword sets a new password using the reset code.
func (g *Gateway) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	_, err := g.idp.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(g.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       g.secretHash(username),
	})
	if err != nil {
		return authError("reset password", err)
	}
	return nil
}

// IDToken returns a usable id token. An expired token is refreshed
// first; callers wait for the refresh instead of getting a stale token.
func (g *Gateway) IDToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureFreshLocked(ctx); err != nil {
		return "", err
	}
	return g.session.IDToken, nil
}

func (g *Gateway) ensureFreshLocked(ctx context.Context) error {
	if g.session.Empty() {
		return &models.AuthError{Op: "session", Message: "not logged in"}
	}
	if !g.session.Expired(g.now()) {
		return nil
	}
	if g.session.RefreshToken == "" {
		return &models.AuthError{Op: "session", Message: "session expired, please log in again"}
	}

	// The refresh hash must use the pool's name for the user, not the
	// alias they signed in with.
	name := g.session.PoolUsername
	if name == "" {
		name = g.session.Username
	}
	params := map[string]string{"REFRESH_TOKEN": g.session.RefreshToken}
	if h := g.secretHash(name); h != nil {
		params["SECRET_HASH"] = *h
	}
	out, err := g.idp.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(g.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return authError("refresh session", err)
	}
	if out.AuthenticationResult == nil {
		return &models.AuthError{Op: "refresh session", Message: "provider returned no tokens"}
	}

	// The refresh flow does not rotate the refresh token.
	s := g.sessionFrom(g.session, out.AuthenticationResult)
	if err := g.store.Save(s); err != nil {
		g.logger.Warn("could not persist refreshed session", "error", err)
	}
	g.session = s
	g.logger.Debug("session refreshed", "expires_at", s.ExpiresAt)
	return nil
}

// sessionFrom builds the session that replaces prev. Values the provider
// did not send again are carried over from prev.
func (g *Gateway) sessionFrom(prev models.Session, r *types.AuthenticationResultType) models.Session {
	refresh := prev.RefreshToken
	if t := aws.ToString(r.RefreshToken); t != "" {
		refresh = t
	}
	idToken := aws.ToString(r.IdToken)
	pool := prev.PoolUsername
	if name := poolUsername(idToken); name != "" {
		pool = name
	}
	return models.Session{
		Username:     prev.Username,
		PoolUsername: pool,
		IDToken:      idToken,
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: refresh,
		ExpiresAt:    g.now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// authError keeps the provider's own message so it can be shown verbatim.
func authError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.ErrorMessage()
		if msg == "" {
			msg = apiErr.ErrorCode()
		}
		return &models.AuthError{Op: op, Message: msg, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.AuthError{Op: op, Message: strings.TrimSpace(err.Error()), Err: err}
}
