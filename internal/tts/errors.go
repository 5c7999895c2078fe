package tts

import (
	"errors"
	"fmt"
)

// Reason classifies why a synthesis call produced no audio.
type Reason string

// Failure reasons.
const (
	ReasonMissingText    Reason = "missing_text"
	ReasonMissingToken   Reason = "missing_token"
	ReasonMissingVoice   Reason = "missing_voice"
	ReasonAPIError       Reason = "api_error"
	ReasonInvalidAudio   Reason = "invalid_audio"
	ReasonTimeout        Reason = "timeout"
	ReasonTransportError Reason = "transport_error"
	// ReasonInternal covers faults outside the remote call, such as a failed
	// file write.
	ReasonInternal Reason = "internal"
)

// Static errors, one per failure reason.
var (
	ErrMissingText    = errors.New("text cannot be empty")
	ErrMissingToken   = errors.New("api token cannot be empty")
	ErrMissingVoice   = errors.New("voice cannot be empty")
	ErrAPI            = errors.New("gsv2p api returned an error")
	ErrInvalidAudio   = errors.New("audio data too small, possibly corrupt")
	ErrTimeout        = errors.New("gsv2p api call timed out")
	ErrTransport      = errors.New("gsv2p api transport failure")
	errInternalFailed = errors.New("synthesis failed")
)

var reasonErrors = map[Reason]error{
	ReasonMissingText:    ErrMissingText,
	ReasonMissingToken:   ErrMissingToken,
	ReasonMissingVoice:   ErrMissingVoice,
	ReasonAPIError:       ErrAPI,
	ReasonInvalidAudio:   ErrInvalidAudio,
	ReasonTimeout:        ErrTimeout,
	ReasonTransportError: ErrTransport,
}

// SynthesisError is the failure side of a synthesis outcome.
type SynthesisError struct {
	Reason Reason
	// StatusCode is the HTTP status for ReasonAPIError, zero otherwise.
	StatusCode int
	// Detail holds diagnostics: the response body for API errors, the byte
	// count for invalid audio.
	Detail string
	Err    error
}

func (e *SynthesisError) Error() string {
	msg := e.sentinel().Error()

	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes both the reason sentinel and the underlying cause, so
// errors.Is works against either.
func (e *SynthesisError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}

	return []error{e.sentinel(), e.Err}
}

func (e *SynthesisError) sentinel() error {
	sentinel, ok := reasonErrors[e.Reason]
	if !ok {
		return errInternalFailed
	}

	return sentinel
}

func newSynthesisError(reason Reason, cause error) *SynthesisError {
	return &SynthesisError{Reason: reason, Err: cause}
}

// ReasonOf returns the failure reason carried by err. Errors that did not come
// from the remote call classify as ReasonInternal; nil yields "".
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}

	var synthErr *SynthesisError
	if errors.As(err, &synthErr) {
		return synthErr.Reason
	}

	return ReasonInternal
}
