package saver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/storage/local"
)

const pendingCollection = "pending"

// PendingSave is an exercise kept on disk after both endpoints failed
type PendingSave struct {
	ID        string          `json:"id"`
	Exercise  domain.Exercise `json:"exercise"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	IsPublic  *bool           `json:"isPublic,omitempty"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError,omitempty"`
	QueuedAt  time.Time       `json:"queuedAt"`
}

// FlushResult counts the outcome of a flush
type FlushResult struct {
	Sent   int
	Failed int
}

// Outbox keeps failed saves until they can be retried.
type Outbox struct {
	store  *local.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewOutbox creates an outbox on store. A nil logger uses slog.Default.
func NewOutbox(store *local.Store, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{store: store, logger: logger, now: time.Now}
}

// Enqueue records ex for a later retry and returns its id
func (o *Outbox) Enqueue(ex domain.Exercise, metadata map[string]any, isPublic *bool, cause error) (string, error) {
	item := PendingSave{
		ID:       uuid.NewString(),
		Exercise: ex,
		Metadata: metadata,
		IsPublic: isPublic,
		Attempts: 1,
		QueuedAt: o.now().UTC(),
	}
	if cause != nil {
		item.LastError = cause.Error()
	}
	if err := o.store.Save(pendingCollection, item.ID, item); err != nil {
		return "", fmt.Errorf("queue exercise: %w", err)
	}
	o.logger.Info("exercise queued for retry", "id", item.ID, "type", ex.Type)
	return item.ID, nil
}

// List returns the queued saves, oldest first
func (o *Outbox) List() ([]PendingSave, error) {
	ids, err := o.store.List(pendingCollection)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	items := make([]PendingSave, 0, len(ids))
	for _, id := range ids {
		var item PendingSave
		if err := o.store.Load(pendingCollection, id, &item); err != nil {
			if errors.Is(err, local.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load pending %s: %w", id, err)
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QueuedAt.Before(items[j].QueuedAt)
	})
	return items, nil
}

// Remove drops a queued save
func (o *Outbox) Remove(id string) error {
	if err := o.store.Delete(pendingCollection, id); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("remove pending %s: %w", id, err)
	}
	return nil
}

// SaveOrQueue validates ex and saves it with info; when both endpoints fail
// the exercise is queued. It reports whether the save went through now.
// Invalid exercises are neither sent nor queued.
func (o *Outbox) SaveOrQueue(ctx context.Context, s *Saver, ex domain.Exercise, info SaveContext) (bool, error) {
	if err := ex.Validate(); err != nil {
		return false, err
	}

	metadata := s.contextMetadata(info)
	opts := s.defaults
	opts.ThrowOnError = true

	ok, err := s.Save(ctx, ex, opts, metadata, info.IsPublic)
	if err == nil {
		return ok, nil
	}
	if _, qerr := o.Enqueue(ex, metadata, info.IsPublic, err); qerr != nil {
		return false, fmt.Errorf("%w (queue: %v)", err, qerr)
	}
	return false, nil
}

// Flush retries every queued save through s. Sent items are removed; failed
// ones stay with their attempt count raised. An expired session stops the
// flush and returns domain.ErrAuthExpired.
func (o *Outbox) Flush(ctx context.Context, s *Saver) (FlushResult, error) {
	var result FlushResult

	items, err := o.List()
	if err != nil {
		return result, err
	}

	opts := s.defaults
	opts.ThrowOnError = true
	opts.LogErrors = false

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.Save(ctx, item.Exercise, opts, item.Metadata, item.IsPublic)
		if err == nil {
			if rerr := o.Remove(item.ID); rerr != nil {
				return result, rerr
			}
			result.Sent++
			continue
		}

		result.Failed++
		item.Attempts++
		item.LastError = err.Error()
		if serr := o.store.Save(pendingCollection, item.ID, item); serr != nil {
			return result, fmt.Errorf("update pending %s: %w", item.ID, serr)
		}
		o.logger.Warn("queued save failed", "id", item.ID, "attempts", item.Attempts, "error", err)

		if errors.Is(err, domain.ErrAuthExpired) {
			return result, err
		}
	}

	return result, nil
}
