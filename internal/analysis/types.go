package analysis

import (
	"fmt"
	"time"
)

// Answer values the model is allowed to return.
const (
	AnswerYes             = "Yes"
	AnswerNo              = "No"
	AnswerCannotDetermine = "Cannot determine"
)

// Verdict is a structured incitement-analysis result for one transcript.
type Verdict struct {
	Answer    string   `json:"answer"`
	Reasoning string   `json:"reasoning"`
	Evidence  []string `json:"evidence"`

	// Attached after parsing, not part of the model output.
	Model      string    `json:"model,omitempty"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	VideoTitle string    `json:"video_title,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// Validate rejects verdicts whose answer is outside the allowed set or whose
// reasoning is empty.
func (v *Verdict) Validate() error {
	switch v.Answer {
	case AnswerYes, AnswerNo, AnswerCannotDetermine:
	default:
		return fmt.Errorf("invalid answer %q", v.Answer)
	}
	if v.Reasoning == "" {
		return fmt.Errorf("reasoning is empty")
	}
	return nil
}
