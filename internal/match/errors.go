package match

import (
	"errors"
	"strings"
)

// Kind classifies a failure of the match pipeline.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindReasoningEngine    Kind = "reasoning_engine"
	KindMalformedResponse  Kind = "malformed_response"
	KindInvalidResultShape Kind = "invalid_result_shape"
	KindUnknownRecipient   Kind = "unknown_recipient"
	KindInternal           Kind = "internal"
)

// Error is the single error type returned by the pipeline stages.
type Error struct {
	Kind     Kind
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return "invalid match request: " + e.details()
	case KindReasoningEngine:
		return "reasoning engine call failed: " + e.details()
	case KindMalformedResponse:
		return "Invalid JSON returned from model: " + e.details()
	case KindInvalidResultShape:
		return "invalid match result: " + e.details()
	case KindUnknownRecipient:
		return "model selected a recipient outside of eligible_recipients: " + e.details()
	default:
		return e.details()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) details() string {
	if len(e.Problems) > 0 {
		return strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func validationError(problems ...string) *Error {
	return &Error{Kind: KindValidation, Problems: problems}
}

func shapeError(problems ...string) *Error {
	return &Error{Kind: KindInvalidResultShape, Problems: problems}
}

// KindOf returns the pipeline kind of err, or KindInternal when err does not
// originate from the pipeline.
func KindOf(err error) Kind {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Kind
	}
	return KindInternal
}

// ErrorBody renders err in the response shape used for every failure.
func ErrorBody(err error) map[string]string {
	if err == nil {
		return map[string]string{"error": "unknown error"}
	}
	return map[string]string{"error": err.Error()}
}
