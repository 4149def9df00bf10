// Package saver records exercises on the backend exactly once per distinct
// content, falling back to the document upload endpoint when the structured
// save endpoint is unavailable.
package saver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// ErrSaveFailed is returned when neither endpoint accepted the exercise
var ErrSaveFailed = errors.New("failed to save exercise to database")

// Doer sends an HTTP request. The API client implements it and attaches the
// bearer token.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds Saver dependencies
type Config struct {
	PrimaryURL  string
	FallbackURL string
	Logger      *slog.Logger
	Now         func() time.Time
	// Defaults are the options used by SaveWithContext. Nil means
	// DefaultSaveOptions.
	Defaults *SaveOptions
}

// SaveOptions controls a single save
type SaveOptions struct {
	UseFallback        bool
	ThrowOnError       bool
	LogErrors          bool
	SkipDuplicateCheck bool
}

// DefaultSaveOptions enables the fallback and error logging
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{UseFallback: true, LogErrors: true}
}

// SaveContext describes where an exercise came from
type SaveContext struct {
	Source   string
	UserID   string
	IsPublic *bool
	Metadata map[string]any
}

// SaveResult is the outcome of one item of SaveMany
type SaveResult struct {
	Index   int
	Type    domain.ExerciseType
	Success bool
	Error   error
}

// Saver owns the set of fingerprints confirmed saved during one session.
type Saver struct {
	client      Doer
	primaryURL  string
	fallbackURL string
	logger      *slog.Logger
	now         func() time.Time
	defaults    SaveOptions

	mu    sync.RWMutex
	saved map[string]struct{}
	group singleflight.Group
}

// New creates a Saver sending requests through client
func New(client Doer, cfg Config) *Saver {
	s := &Saver{
		client:      client,
		primaryURL:  cfg.PrimaryURL,
		fallbackURL: cfg.FallbackURL,
		logger:      cfg.Logger,
		now:         cfg.Now,
		defaults:    DefaultSaveOptions(),
		saved:       make(map[string]struct{}),
	}
	if cfg.Defaults != nil {
		s.defaults = *cfg.Defaults
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// payload is the body accepted by both endpoints
type payload struct {
	Type        domain.ExerciseType      `json:"type"`
	Questions   []string                 `json:"questions"`
	Answers     []string                 `json:"answers"`
	Dictionary  []domain.DictionaryEntry `json:"dictionary"`
	CreatedText string                   `json:"createdText"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
	IsPublic    *bool                    `json:"isPublic,omitempty"`
}

func newPayload(ex domain.Exercise, metadata map[string]any, isPublic *bool) payload {
	dict := ex.Dictionary
	if dict == nil {
		dict = []domain.DictionaryEntry{}
	}
	return payload{
		Type:        ex.Type,
		Questions:   nonNil(ex.Questions),
		Answers:     nonNil(ex.Answers),
		Dictionary:  dict,
		CreatedText: ex.CreatedText,
		Metadata:    metadata,
		IsPublic:    isPublic,
	}
}

// Save submits ex unless identical content was already saved. It reports
// success as a bool; an error is returned only with ThrowOnError.
func (s *Saver) Save(ctx context.Context, ex domain.Exercise, opts SaveOptions, metadata map[string]any, isPublic *bool) (bool, error) {
	fp := Fingerprint(ex)

	if !opts.SkipDuplicateCheck {
		if s.isSavedFingerprint(fp) {
			s.logger.Debug("exercise already saved, skipping duplicate save", "fingerprint", fp)
			return true, nil
		}
		// The shared write outlives any one caller's context; each caller
		// still stops waiting when its own context ends.
		shared := context.WithoutCancel(ctx)
		ch := s.group.DoChan(groupKey(fp, opts), func() (any, error) {
			if s.isSavedFingerprint(fp) {
				return nil, nil
			}
			return nil, s.submit(shared, ex, opts, metadata, isPublic, fp)
		})
		select {
		case res := <-ch:
			return s.finish(res.Err, opts)
		case <-ctx.Done():
			return s.finish(fmt.Errorf("%w: %w", ErrSaveFailed, ctx.Err()), opts)
		}
	}

	return s.finish(s.submit(ctx, ex, opts, metadata, isPublic, fp), opts)
}

// groupKey separates in-flight saves whose fallback setting differs
func groupKey(fp string, opts SaveOptions) string {
	if opts.UseFallback {
		return fp + "|fb"
	}
	return fp
}

func (s *Saver) finish(err error, opts SaveOptions) (bool, error) {
	if err == nil {
		return true, nil
	}
	if opts.LogErrors {
		s.logger.Error("error saving exercise to database", "error", err)
	}
	if opts.ThrowOnError {
		return false, err
	}
	return false, nil
}

func (s *Saver) submit(ctx context.Context, ex domain.Exercise, opts SaveOptions, metadata map[string]any, isPublic *bool, fp string) error {
	body, err := json.Marshal(newPayload(ex, metadata, isPublic))
	if err != nil {
		return fmt.Errorf("%w: encode exercise: %v", ErrSaveFailed, err)
	}

	primaryErr := s.savePrimary(ctx, body)
	if primaryErr == nil {
		s.markSaved(fp)
		s.logger.Info("exercise saved via primary endpoint", "type", ex.Type)
		return nil
	}
	s.logger.Debug("primary save failed", "error", primaryErr)

	if errors.Is(primaryErr, domain.ErrAuthExpired) {
		return fmt.Errorf("%w: %w", ErrSaveFailed, primaryErr)
	}
	if !opts.UseFallback {
		return fmt.Errorf("%w: %w", ErrSaveFailed, primaryErr)
	}

	s.logger.Info("primary save endpoint failed, trying fallback")
	fallbackErr := s.saveFallback(ctx, ex.Type, body)
	if fallbackErr == nil {
		s.markSaved(fp)
		s.logger.Info("exercise saved via fallback endpoint", "type", ex.Type)
		return nil
	}
	s.logger.Debug("fallback save failed", "error", fallbackErr)

	return fmt.Errorf("%w: primary: %w; fallback: %w", ErrSaveFailed, primaryErr, fallbackErr)
}

func (s *Saver) savePrimary(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.primaryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

var whitespace = regexp.MustCompile(`\s+`)

// FallbackFileName is the placeholder document name sent to the upload
// endpoint, e.g. "fill-the-gaps-exercise.pdf".
func FallbackFileName(t domain.ExerciseType) string {
	return whitespace.ReplaceAllString(strings.ToLower(string(t)), "-") + "-exercise.pdf"
}

func (s *Saver) saveFallback(ctx context.Context, t domain.ExerciseType, body []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, FallbackFileName(t)))
	h.Set("Content-Type", "application/pdf")
	if _, err := w.CreatePart(h); err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if err := w.WriteField("exerciseData", string(body)); err != nil {
		return fmt.Errorf("write exerciseData: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.fallbackURL, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return s.send(req)
}

func (s *Saver) send(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}
	return nil
}

// SaveWithContext validates ex, wraps info into metadata and saves with
// the configured default options. Invalid exercises return false and the validation errors
// without any request.
func (s *Saver) SaveWithContext(ctx context.Context, ex domain.Exercise, info SaveContext) (bool, error) {
	if err := ex.Validate(); err != nil {
		s.logger.Warn("invalid exercise data", "error", err)
		return false, err
	}
	return s.Save(ctx, ex, s.defaults, s.contextMetadata(info), info.IsPublic)
}

func (s *Saver) contextMetadata(info SaveContext) map[string]any {
	source := info.Source
	if source == "" {
		source = "unknown"
	}
	meta := map[string]any{
		"createdAt": s.now().UTC().Format(time.RFC3339),
		"source":    source,
	}
	if info.UserID != "" {
		meta["userId"] = info.UserID
	}
	for k, v := range info.Metadata {
		meta[k] = v
	}
	return meta
}

// CreateAndSave tags ex as user-created and saves it with its source
func (s *Saver) CreateAndSave(ctx context.Context, ex domain.Exercise, source string, extra map[string]any) (bool, error) {
	meta := map[string]any{"createdBy": "user"}
	for k, v := range extra {
		meta[k] = v
	}
	return s.SaveWithContext(ctx, ex, SaveContext{Source: source, Metadata: meta})
}

// SaveMany saves each exercise in order. A failing item never stops the
// remaining ones.
func (s *Saver) SaveMany(ctx context.Context, exercises []domain.Exercise, opts SaveOptions) []SaveResult {
	results := make([]SaveResult, 0, len(exercises))
	for i, ex := range exercises {
		itemOpts := opts
		itemOpts.ThrowOnError = true

		ok, err := s.Save(ctx, ex, itemOpts, nil, nil)
		results = append(results, SaveResult{
			Index:   i,
			Type:    ex.Type,
			Success: ok,
			Error:   err,
		})
	}
	return results
}

func (s *Saver) isSavedFingerprint(fp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.saved[fp]
	return ok
}

func (s *Saver) markSaved(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[fp] = struct{}{}
}

// IsSaved reports whether ex was saved during this session
func (s *Saver) IsSaved(ex domain.Exercise) bool {
	return s.isSavedFingerprint(Fingerprint(ex))
}

// SavedCount returns the number of distinct exercises saved
func (s *Saver) SavedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saved)
}

// ClearCache forgets every saved fingerprint
func (s *Saver) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = make(map[string]struct{})
}
