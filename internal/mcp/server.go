package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/langhelper/internal/api"
	"github.com/felixgeelhaar/langhelper/internal/domain"
	"github.com/felixgeelhaar/langhelper/internal/practice"
	"github.com/felixgeelhaar/langhelper/internal/saver"
)

// ExerciseSource fetches and generates exercises. *api.Client implements it.
type ExerciseSource interface {
	Exercise(ctx context.Context, id string) (*domain.DatabaseExercise, error)
	PublicExercise(ctx context.Context, id string) (*domain.DatabaseExercise, error)
	GenerateTrueFalse(ctx context.Context, params api.GenerationParams) (*api.GeneratedExercise, error)
}

// ExerciseSaver records exercises on the backend. *saver.Saver implements it.
type ExerciseSaver interface {
	SaveWithContext(ctx context.Context, ex domain.Exercise, info saver.SaveContext) (bool, error)
}

// Server exposes practice sessions as MCP tools
type Server struct {
	mcpServer *server.Server
	practice  *practice.Service
	source    ExerciseSource
	saver     ExerciseSaver
	logger    *slog.Logger
}

// Config contains configuration for the MCP server
type Config struct {
	Practice *practice.Service
	Source   ExerciseSource
	Saver    ExerciseSaver
	Logger   *slog.Logger
	Version  string
}

// NewServer creates the langhelper MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		practice: cfg.Practice,
		source:   cfg.Source,
		saver:    cfg.Saver,
		logger:   cfg.Logger,
	}
	if s.practice == nil {
		s.practice = practice.NewService(practice.WithLogger(cfg.Logger))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "langhelper",
		Version: version,
	}, server.WithInstructions(`
langhelper runs language exercises.

Open an exercise with exercise_open, then:
- Fill The Gaps / Match The Sentence: drop answers into slots with exercise_place.
  Correct answers stay; incorrect ones are removed after a short delay.
- True/False, ABCD, Open Questions: fill every slot with exercise_answer, then exercise_check.
- Dialogue: read only.

exercise_status shows the slots and the answers still available.
exercise_generate_truefalse creates, saves and opens a new True/False exercise.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("exercise_open").
		Description("Open an exercise by uuid, public share link or inline JSON and start a session").
		Handler(s.handleOpen)

	s.mcpServer.Tool("exercise_place").
		Description("Drop an answer into a question slot of a matching exercise").
		Handler(s.handlePlace)

	s.mcpServer.Tool("exercise_answer").
		Description("Set the answer of one slot of a True/False, ABCD or Open Questions exercise").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("exercise_check").
		Description("Grade all answers of a True/False, ABCD or Open Questions exercise").
		Handler(s.handleCheck)

	s.mcpServer.Tool("exercise_reset").
		Description("Clear every answer of a session").
		Handler(s.handleReset)

	s.mcpServer.Tool("exercise_status").
		Description("Show the slots, placed answers and score of a session").
		Handler(s.handleStatus)

	s.mcpServer.Tool("exercise_close").
		Description("End a practice session").
		Handler(s.handleClose)

	s.mcpServer.Tool("exercise_generate_truefalse").
		Description("Generate a True/False exercise, save it and open a session").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("exercise_save").
		Description("Save an exercise given as JSON to the backend").
		Handler(s.handleSave)
}

// Input/Output types for tools

type OpenInput struct {
	UUID         string `json:"uuid,omitempty" jsonschema:"description=Exercise uuid from the user's history"`
	Public       string `json:"public,omitempty" jsonschema:"description=Public exercise uuid or share link"`
	ExerciseJSON string `json:"exercise_json,omitempty" jsonschema:"description=Exercise as JSON with type and questions and answers and dictionary"`
}

type OpenOutput struct {
	SessionID string   `json:"session_id"`
	Type      string   `json:"type"`
	Mode      string   `json:"mode"`
	Questions []string `json:"questions"`
	Answers   []string `json:"answers,omitempty"`
	Message   string   `json:"message"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from exercise_open"`
}

type PlaceInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from exercise_open"`
	Slot      int    `json:"slot" jsonschema:"description=Zero-based question index"`
	Answer    int    `json:"answer" jsonschema:"description=Zero-based answer index"`
}

type PlaceOutput struct {
	Correct  bool   `json:"correct"`
	Complete bool   `json:"complete"`
	Message  string `json:"message"`
}

type AnswerInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from exercise_open"`
	Slot      int    `json:"slot" jsonschema:"description=Zero-based question index"`
	Value     string `json:"value" jsonschema:"description=Answer text such as True or B"`
}

type CheckOutput struct {
	Results []bool `json:"results"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	Summary string `json:"summary"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

type GenerateInput struct {
	Level string `json:"level,omitempty" jsonschema:"description=Language level such as A2 or B1"`
	Age   string `json:"age,omitempty" jsonschema:"description=Age group of the student"`
	Topic string `json:"topic" jsonschema:"description=Topic of the exercise"`
}

type GenerateOutput struct {
	SessionID string   `json:"session_id"`
	Questions []string `json:"questions"`
	Saved     bool     `json:"saved"`
	Message   string   `json:"message"`
}

type SaveInput struct {
	ExerciseJSON string `json:"exercise_json" jsonschema:"description=Exercise as JSON"`
	Source       string `json:"source,omitempty" jsonschema:"description=Where the exercise came from"`
	Public       *bool  `json:"public,omitempty" jsonschema:"description=Publish the exercise"`
}

type SaveOutput struct {
	Saved   bool   `json:"saved"`
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleOpen(ctx context.Context, input OpenInput) (OpenOutput, error) {
	req, err := s.openRequest(ctx, input)
	if err != nil {
		return OpenOutput{}, err
	}

	sess, err := s.practice.Open(req)
	if err != nil {
		return OpenOutput{}, fmt.Errorf("failed to open exercise: %w", err)
	}
	return describeSession(sess), nil
}

func (s *Server) openRequest(ctx context.Context, input OpenInput) (practice.OpenRequest, error) {
	switch {
	case input.ExerciseJSON != "":
		ex, err := decodeExercise(input.ExerciseJSON)
		if err != nil {
			return practice.OpenRequest{}, err
		}
		return practice.OpenRequest{Exercise: *ex, Source: "inline"}, nil

	case input.UUID != "" || input.Public != "":
		if s.source == nil {
			return practice.OpenRequest{}, errors.New("no backend configured")
		}
		var (
			row    *domain.DatabaseExercise
			err    error
			origin = "history"
		)
		if input.UUID != "" {
			row, err = s.source.Exercise(ctx, input.UUID)
		} else {
			origin = "public"
			row, err = s.source.PublicExercise(ctx, input.Public)
		}
		if err != nil {
			return practice.OpenRequest{}, fmt.Errorf("failed to fetch exercise: %w", err)
		}
		ex, err := row.ToExercise()
		if err != nil {
			return practice.OpenRequest{}, fmt.Errorf("failed to read exercise: %w", err)
		}
		return practice.OpenRequest{Exercise: *ex, ExerciseUUID: row.UUID, Source: origin}, nil
	}
	return practice.OpenRequest{}, fmt.Errorf("%w: one of uuid, public or exercise_json is required", domain.ErrValidation)
}

func describeSession(sess *practice.Session) OpenOutput {
	ex := sess.Exercise()
	out := OpenOutput{
		SessionID: sess.ID,
		Type:      string(ex.Type),
		Mode:      string(sess.Mode),
		Questions: ex.Questions,
	}
	switch sess.Mode {
	case practice.ModeMatching:
		out.Answers = ex.Answers
		out.Message = fmt.Sprintf("Place each of the %d answers into one of the %d slots.", len(ex.Answers), len(ex.Questions))
	case practice.ModeScalar:
		out.Message = fmt.Sprintf("Answer all %d questions, then check.", len(ex.Questions))
	default:
		out.Message = "This exercise is read only."
	}
	return out
}

func (s *Server) handlePlace(ctx context.Context, input PlaceInput) (PlaceOutput, error) {
	correct, err := s.practice.Place(input.SessionID, input.Slot, input.Answer)
	if err != nil {
		return PlaceOutput{}, err
	}
	st, err := s.practice.Status(input.SessionID)
	if err != nil {
		return PlaceOutput{}, err
	}

	out := PlaceOutput{Correct: correct, Complete: st.Complete}
	switch {
	case st.Complete:
		out.Message = "Correct. All slots are filled."
	case correct:
		out.Message = "Correct."
	default:
		out.Message = "Incorrect. The answer will be removed shortly."
	}
	return out, nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (MessageOutput, error) {
	if err := s.practice.Answer(input.SessionID, input.Slot, input.Value); err != nil {
		return MessageOutput{}, err
	}
	return MessageOutput{Message: fmt.Sprintf("Answer for question %d recorded.", input.Slot+1)}, nil
}

func (s *Server) handleCheck(ctx context.Context, input SessionInput) (CheckOutput, error) {
	feedback, err := s.practice.Check(input.SessionID)
	if err != nil {
		return CheckOutput{}, err
	}

	slots := make([]int, 0, len(feedback))
	for i := range feedback {
		slots = append(slots, i)
	}
	sort.Ints(slots)

	out := CheckOutput{Results: make([]bool, len(slots)), Total: len(slots)}
	for i, slot := range slots {
		out.Results[i] = feedback[slot]
		if feedback[slot] {
			out.Correct++
		}
	}
	out.Summary = fmt.Sprintf("%d of %d correct", out.Correct, out.Total)
	return out, nil
}

func (s *Server) handleReset(ctx context.Context, input SessionInput) (MessageOutput, error) {
	if err := s.practice.Reset(input.SessionID); err != nil {
		return MessageOutput{}, err
	}
	return MessageOutput{Message: "Session reset."}, nil
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (practice.Status, error) {
	st, err := s.practice.Status(input.SessionID)
	if err != nil {
		return practice.Status{}, err
	}
	return *st, nil
}

func (s *Server) handleClose(ctx context.Context, input SessionInput) (MessageOutput, error) {
	if err := s.practice.Close(input.SessionID); err != nil {
		return MessageOutput{}, err
	}
	return MessageOutput{Message: "Session ended."}, nil
}

func (s *Server) handleGenerate(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	if s.source == nil {
		return GenerateOutput{}, errors.New("no backend configured")
	}

	params := api.GenerationParams{Level: input.Level, Age: input.Age, Topic: input.Topic}
	gen, err := s.source.GenerateTrueFalse(ctx, params)
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return GenerateOutput{}, fmt.Errorf("generation timed out, try again: %w", err)
		}
		return GenerateOutput{}, fmt.Errorf("failed to generate exercise: %w", err)
	}

	saved := false
	if s.saver != nil {
		meta := map[string]any{"level": input.Level, "age": input.Age, "topic": input.Topic}
		for k, v := range gen.Metadata {
			meta[k] = v
		}
		saved, err = s.saver.SaveWithContext(ctx, gen.Exercise, saver.SaveContext{
			Source:   "api-generation",
			Metadata: meta,
		})
		if err != nil {
			s.logger.Warn("generated exercise not saved", "error", err)
		}
	}

	sess, err := s.practice.Open(practice.OpenRequest{Exercise: gen.Exercise, Source: "api-generation"})
	if err != nil {
		return GenerateOutput{}, fmt.Errorf("failed to open generated exercise: %w", err)
	}

	out := GenerateOutput{SessionID: sess.ID, Questions: gen.Questions, Saved: saved}
	if saved {
		out.Message = "Exercise generated and saved."
	} else {
		out.Message = "Exercise generated; it could not be saved."
	}
	return out, nil
}

func (s *Server) handleSave(ctx context.Context, input SaveInput) (SaveOutput, error) {
	if s.saver == nil {
		return SaveOutput{}, errors.New("no backend configured")
	}
	ex, err := decodeExercise(input.ExerciseJSON)
	if err != nil {
		return SaveOutput{}, err
	}

	source := input.Source
	if source == "" {
		source = "mcp"
	}
	saved, err := s.saver.SaveWithContext(ctx, *ex, saver.SaveContext{Source: source, IsPublic: input.Public})
	if err != nil {
		return SaveOutput{}, err
	}
	if !saved {
		return SaveOutput{Message: "Exercise could not be saved."}, nil
	}
	return SaveOutput{Saved: true, Message: "Exercise saved."}, nil
}

func decodeExercise(data string) (*domain.Exercise, error) {
	var ex domain.Exercise
	if err := json.Unmarshal([]byte(data), &ex); err != nil {
		return nil, fmt.Errorf("%w: exercise json: %v", domain.ErrParse, err)
	}
	return &ex, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
