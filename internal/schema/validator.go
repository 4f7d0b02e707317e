// Package schema validates outbound events before they are published.
package schema

import (
	"errors"
	"fmt"

	"ai-speech-translation-service/internal/models"
)

var ErrInvalidEvent = errors.New("invalid event")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of known event types. Unknown types
// are rejected.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.TranscriptEvent:
		return v.validateTranscript(ev)
	case *models.TranscriptEvent:
		return v.validateTranscript(*ev)
	case models.UtteranceEvent:
		return v.validateUtterance(ev)
	case *models.UtteranceEvent:
		return v.validateUtterance(*ev)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidEvent, event)
	}
}

func (v *Validator) validateTranscript(ev models.TranscriptEvent) error {
	switch {
	case ev.EventType != models.EventTranscriptPartial && ev.EventType != models.EventTranscriptFinal:
		return fmt.Errorf("%w: eventType %q", ErrInvalidEvent, ev.EventType)
	case ev.SessionID == "":
		return fmt.Errorf("%w: missing sessionId", ErrInvalidEvent)
	case ev.Timestamp <= 0:
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}

func (v *Validator) validateUtterance(ev models.UtteranceEvent) error {
	switch {
	case ev.EventType != models.EventUtteranceProduced:
		return fmt.Errorf("%w: eventType %q", ErrInvalidEvent, ev.EventType)
	case ev.UtteranceIndex < 0:
		return fmt.Errorf("%w: negative utterance index", ErrInvalidEvent)
	case ev.SourceText == "" || ev.TranslatedText == "":
		return fmt.Errorf("%w: missing text", ErrInvalidEvent)
	case ev.Timestamp <= 0:
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}
