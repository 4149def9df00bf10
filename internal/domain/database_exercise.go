package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DatabaseExercise is a persisted exercise row as returned by the history
// and public endpoints
type DatabaseExercise struct {
	ID           int64  `json:"id"`
	UUID         string `json:"uuid"`
	ExerciseData string `json:"exerciseData"`
	Timestamp    string `json:"timestamp"`
	UserID       int64  `json:"userId"`
	IsCompleted  bool   `json:"isCompleted"`
	IsPublic     bool   `json:"isPublic"`
}

// UnmarshalJSON normalizes the public flag, which the store may send as
// isPublic, is_public or public, typed as bool, string or number.
func (d *DatabaseExercise) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64           `json:"id"`
		UUID         string          `json:"uuid"`
		ExerciseData json.RawMessage `json:"exerciseData"`
		Timestamp    json.RawMessage `json:"timestamp"`
		UserID       int64           `json:"userId"`
		IsCompleted  bool            `json:"isCompleted"`
		IsPublic     any             `json:"isPublic"`
		IsPublicSC   any             `json:"is_public"`
		Public       any             `json:"public"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: decode exercise row: %v", ErrParse, err)
	}

	d.ID = raw.ID
	d.UUID = raw.UUID
	d.ExerciseData = rawString(raw.ExerciseData)
	d.Timestamp = rawString(raw.Timestamp)
	d.UserID = raw.UserID
	d.IsCompleted = raw.IsCompleted
	d.IsPublic = NormalizePublic(firstNonNil(raw.IsPublic, raw.IsPublicSC, raw.Public))
	return nil
}

// NormalizePublic converts the loosely typed public flag to a bool.
// Strings are true only for "true", numbers only for 1, nil is false.
func NormalizePublic(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t == "true"
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case json.Number:
		return t.String() == "1"
	default:
		return false
	}
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// rawString accepts either a JSON string or an embedded JSON value and
// returns it as text. The history endpoint sends exerciseData as a string;
// some rows embed the object directly.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ParsedExerciseData is the JSON payload stored in DatabaseExercise.ExerciseData
type ParsedExerciseData struct {
	Exercise
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ParseExerciseData decodes a stored payload. A type sent as an array keeps
// its first element. Missing type, questions, answers or dictionary is a
// parse error.
func ParseExerciseData(payload string) (*ParsedExerciseData, error) {
	var raw struct {
		Type        json.RawMessage   `json:"type"`
		Questions   []string          `json:"questions"`
		Answers     []string          `json:"answers"`
		Dictionary  []DictionaryEntry `json:"dictionary"`
		CreatedText string            `json:"createdText"`
		Metadata    map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: exercise data: %v", ErrParse, err)
	}

	typ, err := decodeType(raw.Type)
	if err != nil {
		return nil, err
	}

	var missing []string
	if typ == "" {
		missing = append(missing, "type")
	}
	if raw.Questions == nil {
		missing = append(missing, "questions")
	}
	if raw.Answers == nil {
		missing = append(missing, "answers")
	}
	if raw.Dictionary == nil {
		missing = append(missing, "dictionary")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: exercise data missing %s", ErrParse, strings.Join(missing, ", "))
	}

	return &ParsedExerciseData{
		Exercise: Exercise{
			Type:        ExerciseType(typ),
			Questions:   raw.Questions,
			Answers:     raw.Answers,
			Dictionary:  raw.Dictionary,
			CreatedText: raw.CreatedText,
		},
		Metadata: raw.Metadata,
	}, nil
}

func decodeType(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("%w: exercise type: %v", ErrParse, err)
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0], nil
}

// ToExercise converts a stored row into the exercise shown to the user
func (d *DatabaseExercise) ToExercise() (*Exercise, error) {
	if d == nil || d.ExerciseData == "" {
		return nil, fmt.Errorf("%w: exercise row has no data", ErrParse)
	}
	parsed, err := ParseExerciseData(d.ExerciseData)
	if err != nil {
		return nil, err
	}
	ex := parsed.Exercise
	return &ex, nil
}

// ExerciseTableRow is the summary shown in history listings
type ExerciseTableRow struct {
	ID             int64        `json:"id"`
	UUID           string       `json:"uuid"`
	Type           ExerciseType `json:"type"`
	CreatedText    string       `json:"createdText"`
	QuestionsCount int          `json:"questionsCount"`
	Timestamp      string       `json:"timestamp"`
	IsCompleted    bool         `json:"isCompleted"`
	IsPublic       bool         `json:"isPublic"`
	Source         string       `json:"source,omitempty"`
	FileName       string       `json:"fileName,omitempty"`
	Difficulty     string       `json:"difficulty,omitempty"`
	PublicURL      string       `json:"publicUrl,omitempty"`
}

// ToTableRow summarizes a row; publicBase is the origin used for share links
func (d *DatabaseExercise) ToTableRow(publicBase string) (*ExerciseTableRow, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil exercise row", ErrParse)
	}
	parsed, err := ParseExerciseData(d.ExerciseData)
	if err != nil {
		return nil, err
	}

	createdText := parsed.CreatedText
	if createdText == "" {
		createdText = "No description"
	}

	row := &ExerciseTableRow{
		ID:             d.ID,
		UUID:           d.UUID,
		Type:           parsed.Type,
		CreatedText:    createdText,
		QuestionsCount: len(parsed.Questions),
		Timestamp:      d.Timestamp,
		IsCompleted:    d.IsCompleted,
		IsPublic:       d.IsPublic,
		Source:         metadataString(parsed.Metadata, "source"),
		FileName:       metadataString(parsed.Metadata, "fileName"),
		Difficulty:     metadataString(parsed.Metadata, "difficulty"),
	}
	if d.IsPublic {
		row.PublicURL = PublicURL(publicBase, d.UUID)
	}
	return row, nil
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// ExerciseDataString serializes an exercise with its metadata for storage.
// Metadata defaults to an empty object.
func ExerciseDataString(ex Exercise, metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(struct {
		Type        ExerciseType      `json:"type"`
		Questions   []string          `json:"questions"`
		Answers     []string          `json:"answers"`
		Dictionary  []DictionaryEntry `json:"dictionary"`
		CreatedText string            `json:"createdText,omitempty"`
		Metadata    map[string]any    `json:"metadata"`
	}{ex.Type, ex.Questions, ex.Answers, ex.Dictionary, ex.CreatedText, metadata})
	if err != nil {
		return "", fmt.Errorf("marshal exercise data: %w", err)
	}
	return string(data), nil
}
