package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// TogglePublicResult is the backend answer to a visibility change
type TogglePublicResult struct {
	Success   bool   `json:"success"`
	IsPublic  bool   `json:"isPublic"`
	PublicURL string `json:"publicUrl"`
}

// History lists the exercises of the logged-in user
func (c *Client) History(ctx context.Context) ([]domain.DatabaseExercise, error) {
	var rows []domain.DatabaseExercise
	err := c.resilience.read(ctx, func(ctx context.Context) error {
		rows = nil
		return c.call(ctx, http.MethodGet, c.URL(c.endpoints.History), nil, &rows, true)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return rows, nil
}

// Exercise fetches one of the user's exercises
func (c *Client) Exercise(ctx context.Context, id string) (*domain.DatabaseExercise, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	return c.fetchRow(ctx, withUUID(c.endpoints.Task, id), true)
}

// PublicExercise fetches a shared exercise without sending credentials.
// id may be a bare uuid or a public share link.
func (c *Client) PublicExercise(ctx context.Context, id string) (*domain.DatabaseExercise, error) {
	if extracted, ok := domain.ExtractUUID(id); ok {
		id = extracted
	}
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	return c.fetchRow(ctx, withUUID(c.endpoints.Public, id), false)
}

func (c *Client) fetchRow(ctx context.Context, path string, authenticated bool) (*domain.DatabaseExercise, error) {
	var row domain.DatabaseExercise
	err := c.resilience.read(ctx, func(ctx context.Context) error {
		row = domain.DatabaseExercise{}
		return c.call(ctx, http.MethodGet, c.URL(path), nil, &row, authenticated)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExerciseNotFound, err)
		}
		return nil, err
	}
	return &row, nil
}

// TogglePublic changes the visibility of an exercise. When the backend
// omits the share link for a public exercise it is built locally.
func (c *Client) TogglePublic(ctx context.Context, id string, isPublic bool) (*TogglePublicResult, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}

	body := struct {
		IsPublic bool `json:"isPublic"`
	}{IsPublic: isPublic}

	var result TogglePublicResult
	if err := c.call(ctx, http.MethodPost, c.URL(withUUID(c.endpoints.TogglePublic, id)), body, &result, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExerciseNotFound, err)
		}
		return nil, err
	}
	if result.IsPublic && result.PublicURL == "" {
		result.PublicURL = domain.PublicURL(c.publicBaseURL, id)
	}
	return &result, nil
}

// Health reports whether the backend answers its health endpoint
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := c.call(ctx, http.MethodGet, c.URL(c.endpoints.Health), nil, &status, false); err != nil {
		return nil, err
	}
	return status, nil
}

// Close releases background resources
func (c *Client) Close() error {
	return c.resilience.Close()
}

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid exercise id %q", domain.ErrValidation, id)
	}
	return nil
}
