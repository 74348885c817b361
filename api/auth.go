package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmcleod/adconsole/gateway"
	"github.com/jmcleod/adconsole/session"
)

// AuthService calls the credential endpoints. It is the session
// controller's backend.
type AuthService struct {
	gw *gateway.Gateway
}

var _ session.Backend = (*AuthService)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials. The call is silent: the session controller
// reports login failures itself.
func (s *AuthService) Login(ctx context.Context, username, password string) (*session.LoginResult, error) {
	resp, err := s.gw.Do(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Username: username, Password: password},
		Silent: true,
	})
	if err != nil {
		return nil, err
	}
	var res session.LoginResult
	if err := gateway.DecodeJSON(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Verify checks the bearer token and returns the current user.
func (s *AuthService) Verify(ctx context.Context) (*session.Identity, error) {
	var out struct {
		User *session.Identity `json:"user"`
	}
	if err := s.gw.Get(ctx, "/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errors.New("verify response missing user")
	}
	return out.User, nil
}

// AntiForgeryToken fetches a fresh anti-forgery token.
func (s *AuthService) AntiForgeryToken(ctx context.Context) (string, error) {
	var out struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := s.gw.Get(ctx, "/auth/csrf-token", nil, &out); err != nil {
		return "", err
	}
	if out.CSRFToken == "" {
		return "", errors.New("csrf response missing token")
	}
	return out.CSRFToken, nil
}
