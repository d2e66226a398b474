// Package quiz defines the JSON wire types of the PersonaQuiz HTTP API.
package quiz

import (
	"fmt"
	"strings"
)

// Question is one item as served by GET /questions/{testType}.
type Question struct {
	ID       string            `json:"id"`
	Position int               `json:"position"`
	Factor   string            `json:"factor,omitempty"`
	Reverse  bool              `json:"reverse,omitempty"`
	Text     map[string]string `json:"text,omitempty"`
	Options  []Option          `json:"options,omitempty"`
}

// Option is one side of a forced-choice question.
type Option struct {
	Factor string            `json:"factor"`
	Text   map[string]string `json:"text"`
}

// Answer is one recorded answer.
type Answer struct {
	QuestionID string `json:"questionId"`
	Factor     string `json:"factor,omitempty"`
	Rating     int    `json:"rating,omitempty"`
}

// SaveProgressRequest is the body of POST /save-progress.
type SaveProgressRequest struct {
	SessionID       string         `json:"sessionId"`
	TestID          string         `json:"testId"`
	CurrentQuestion int            `json:"currentQuestion"`
	Answers         []Answer       `json:"answers"`
	Scores          map[string]int `json:"scores,omitempty"`
	Language        string         `json:"language,omitempty"`
	Timestamp       int64          `json:"timestamp,omitempty"`
}

// Validate checks the request shape.
func (r *SaveProgressRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("sessionId is required")
	}
	if r.TestID == "" {
		return fmt.Errorf("testId is required")
	}
	if r.CurrentQuestion < 0 {
		return fmt.Errorf("currentQuestion must be >= 0")
	}
	if len(r.Answers) != r.CurrentQuestion {
		return fmt.Errorf("answers has %d entries for currentQuestion %d", len(r.Answers), r.CurrentQuestion)
	}
	return nil
}

// SaveResultRequest is the body of POST /save-result. MBTI callers may send
// the label as "type" instead of "profileKey".
type SaveResultRequest struct {
	SessionID  string         `json:"sessionId"`
	TestID     string         `json:"testId"`
	Scores     map[string]int `json:"scores"`
	ProfileKey string         `json:"profileKey,omitempty"`
	Type       string         `json:"type,omitempty"`
	Language   string         `json:"language,omitempty"`
	Timestamp  int64          `json:"timestamp,omitempty"`
}

// Key returns the profile key, preferring profileKey over type.
func (r *SaveResultRequest) Key() string {
	if r.ProfileKey != "" {
		return r.ProfileKey
	}
	return r.Type
}

// Validate checks the request shape.
func (r *SaveResultRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("sessionId is required")
	}
	if r.TestID == "" {
		return fmt.Errorf("testId is required")
	}
	if len(r.Scores) == 0 {
		return fmt.Errorf("scores are required")
	}
	for f, n := range r.Scores {
		if n < 0 {
			return fmt.Errorf("score for %s is negative", f)
		}
	}
	return nil
}

// FactorScore is one factor's magnitude.
type FactorScore struct {
	Factor  string  `json:"factor"`
	Name    string  `json:"name,omitempty"`
	Score   int     `json:"score"`
	Max     int     `json:"max"`
	Percent float64 `json:"percent"`
}

// Result is the body of GET /results/{sessionId}/{testType}.
type Result struct {
	SessionID      string         `json:"sessionId"`
	TestID         string         `json:"testId"`
	Language       string         `json:"language"`
	Scores         map[string]int `json:"scores"`
	Magnitudes     []FactorScore  `json:"magnitudes,omitempty"`
	ProfileKey     string         `json:"profileKey,omitempty"`
	ProfileName    string         `json:"profileName,omitempty"`
	ProfileSummary string         `json:"profileSummary,omitempty"`
	CompletedAt    string         `json:"completedAt"`
	Timestamp      int64          `json:"timestamp"`
}

// ExportResponse is the body of POST /results/{sessionId}/{testType}/export.
type ExportResponse struct {
	URL       string `json:"url"`
	ObjectKey string `json:"objectKey"`
	ExpiresAt string `json:"expiresAt"`
}

// StatusResponse acknowledges a write.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// TestInfo describes one entry of GET /tests.
type TestInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Format    string   `json:"format"`
	Factors   []string `json:"factors"`
	ScaleMin  int      `json:"scaleMin,omitempty"`
	ScaleMax  int      `json:"scaleMax,omitempty"`
	Questions int      `json:"questions"`
}
