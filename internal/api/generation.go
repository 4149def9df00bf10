package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// GenerationKind selects the generator on the backend
type GenerationKind string

const (
	KindTrueFalse     GenerationKind = "truefalse"
	KindABCD          GenerationKind = "abcd"
	KindOpenQuestions GenerationKind = "open"
	KindDialogue      GenerationKind = "dialogue"
)

// Kinds lists every supported generation kind
var Kinds = []GenerationKind{KindTrueFalse, KindABCD, KindOpenQuestions, KindDialogue}

// ParseKind accepts a kind name or an exercise type name
func ParseKind(s string) (GenerationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truefalse", "true/false", "tf":
		return KindTrueFalse, nil
	case "abcd":
		return KindABCD, nil
	case "open", "open questions", "openquestions":
		return KindOpenQuestions, nil
	case "dialogue":
		return KindDialogue, nil
	}
	return "", fmt.Errorf("%w: unknown exercise kind %q", domain.ErrValidation, s)
}

// GenerationParams describe the student the exercise is generated for
type GenerationParams struct {
	Level string
	Age   string
	Topic string
}

// Validate requires a non-blank topic
func (p GenerationParams) Validate() error {
	if strings.TrimSpace(p.Topic) == "" {
		return fmt.Errorf("%w: topic is required", domain.ErrValidation)
	}
	return nil
}

func (p GenerationParams) query() url.Values {
	q := url.Values{}
	q.Set("level", p.Level)
	q.Set("age", p.Age)
	q.Set("topic", p.Topic)
	return q
}

// GeneratedExercise is a generation result plus the metadata the backend
// attached to it.
type GeneratedExercise struct {
	domain.Exercise
	Metadata map[string]any
}

// GenerateTrueFalse asks the backend for a True/False exercise
func (c *Client) GenerateTrueFalse(ctx context.Context, params GenerationParams) (*GeneratedExercise, error) {
	return c.Generate(ctx, KindTrueFalse, params)
}

// GenerateABCD asks the backend for a multiple-choice exercise
func (c *Client) GenerateABCD(ctx context.Context, params GenerationParams) (*GeneratedExercise, error) {
	return c.Generate(ctx, KindABCD, params)
}

// Generate requests a new exercise of kind. The request is bounded by the
// generation timeout; an overrun returns domain.ErrTimeout.
func (c *Client) Generate(ctx context.Context, kind GenerationKind, params GenerationParams) (*GeneratedExercise, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.generationTimeout)
	defer cancel()

	target := c.URL(withKind(c.endpoints.Generate, kind)) + "?" + params.query().Encode()

	var result *GeneratedExercise
	err := c.resilience.generate(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Cache-Control", "no-cache")

		result, err = c.exerciseResponse(req)
		return err
	})
	if err != nil {
		c.logger.Warn("generation failed", "kind", kind, "error", err)
		return nil, mapTimeout(err)
	}

	c.logger.Info("exercise generated", "kind", kind, "type", result.Type, "questions", len(result.Questions))
	return result, nil
}

// UploadDocument sends a document to the OCR endpoint, which returns an
// exercise built from its text.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*GeneratedExercise, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.generationTimeout)
	defer cancel()

	var result *GeneratedExercise
	err = c.resilience.generate(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(c.endpoints.Upload), bytes.NewReader(buf.Bytes()))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		result, err = c.exerciseResponse(req)
		return err
	})
	if err != nil {
		return nil, mapTimeout(err)
	}

	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	if _, ok := result.Metadata["fileName"]; !ok {
		result.Metadata["fileName"] = filepath.Base(filename)
	}
	if _, ok := result.Metadata["source"]; !ok {
		result.Metadata["source"] = "pdf-upload"
	}
	return result, nil
}

func (c *Client) exerciseResponse(req *http.Request) (*GeneratedExercise, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}
	return decodeGenerated(raw)
}

// decodeGenerated checks a generation body: an "error" member is a server
// error, and type, questions and answers must be present.
func decodeGenerated(data []byte) (*GeneratedExercise, error) {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if len(probe.Error) > 0 && string(probe.Error) != "null" {
		msg := rawErrorText(probe.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: "server error: " + msg}
	}

	var body struct {
		Type        json.RawMessage          `json:"type"`
		Questions   []string                 `json:"questions"`
		Answers     []string                 `json:"answers"`
		Dictionary  []domain.DictionaryEntry `json:"dictionary"`
		CreatedText string                   `json:"createdText"`
		Metadata    map[string]any           `json:"metadata"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	typ := exerciseType(body.Type)
	if typ == "" || body.Questions == nil || body.Answers == nil {
		return nil, fmt.Errorf("%w: generated exercise lacks type, questions or answers", domain.ErrParse)
	}
	if body.Dictionary == nil {
		body.Dictionary = []domain.DictionaryEntry{}
	}

	return &GeneratedExercise{
		Exercise: domain.Exercise{
			Type:        domain.ExerciseType(typ),
			Questions:   body.Questions,
			Answers:     body.Answers,
			Dictionary:  body.Dictionary,
			CreatedText: body.CreatedText,
		},
		Metadata: body.Metadata,
	}, nil
}

// exerciseType reads type as a string or the first element of an array
func exerciseType(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
