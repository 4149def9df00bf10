package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// User is the account returned by the auth endpoints
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"-"`
}

// userPayload accepts both field spellings used by the backend
type userPayload struct {
	ID          json.RawMessage `json:"id"`
	UserID      json.RawMessage `json:"userId"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Username    string          `json:"username"`
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	Error       string          `json:"error"`
}

func (p userPayload) user() User {
	u := User{
		ID:       idString(p.ID),
		Email:    p.Email,
		Username: p.Name,
		Token:    p.Token,
	}
	if u.ID == "" {
		u.ID = idString(p.UserID)
	}
	if u.Username == "" {
		u.Username = p.Username
	}
	if u.Token == "" {
		u.Token = p.AccessToken
	}
	return u
}

func idString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

type credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate logs in and stores the returned token
func (c *Client) Authenticate(ctx context.Context, email, password string) (*User, error) {
	return c.login(ctx, c.endpoints.Authenticate, credentials{Email: email, Password: password})
}

// Register creates an account and stores the returned token
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	return c.login(ctx, c.endpoints.Register, credentials{Username: username, Email: email, Password: password})
}

func (c *Client) login(ctx context.Context, path string, creds credentials) (*User, error) {
	var payload userPayload
	if err := c.call(ctx, http.MethodPost, c.URL(path), creds, &payload, false); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: payload.Error}
	}

	user := payload.user()
	if user.Email == "" {
		user.Email = creds.Email
	}
	if user.Token != "" {
		if err := c.tokens.SetToken(user.Token); err != nil {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	c.logger.Info("authenticated", "user_id", user.ID, "email", user.Email)
	return &user, nil
}

// Logout notifies the backend when a token is held and always clears it
func (c *Client) Logout(ctx context.Context) error {
	if c.IsAuthenticated() {
		if err := c.call(ctx, http.MethodPost, c.URL(c.endpoints.Logout), nil, nil, true); err != nil {
			c.logger.Warn("logout request failed", "error", err)
		}
	}
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// CurrentUser returns the logged-in account. Without a token it returns
// domain.ErrNotAuthenticated; when the lookup fails the token is cleared.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	var payload userPayload
	if err := c.call(ctx, http.MethodGet, c.URL(c.endpoints.Me), nil, &payload, true); err != nil {
		// A backend that answered but could not describe the user means the
		// token is unusable. An unreachable backend says nothing about it.
		var apiErr *APIError
		if errors.As(err, &apiErr) || !errors.Is(err, domain.ErrTransport) {
			if clearErr := c.tokens.Clear(); clearErr != nil {
				c.logger.Warn("failed to clear token", "error", clearErr)
			}
		}
		return nil, err
	}

	user := payload.user()
	user.Token = token
	return &user, nil
}
