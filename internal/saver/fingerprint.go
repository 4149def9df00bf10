package saver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

type fingerprintFields struct {
	Type        domain.ExerciseType `json:"type"`
	Questions   []string            `json:"questions"`
	Answers     []string            `json:"answers"`
	CreatedText string              `json:"createdText"`
}

// Fingerprint identifies the content of ex. Metadata and the dictionary are
// not part of it; order of questions and answers is.
func Fingerprint(ex domain.Exercise) string {
	fields := fingerprintFields{
		Type:        ex.Type,
		Questions:   nonNil(ex.Questions),
		Answers:     nonNil(ex.Answers),
		CreatedText: ex.CreatedText,
	}
	// Marshaling a struct of strings cannot fail.
	data, _ := json.Marshal(fields)
	sum := sha256.Sum256(data)
	return string(ex.Type) + "-" + hex.EncodeToString(sum[:])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
