// Package models defines the data structures for transcript and translation events.
package models

const (
	EventTranscriptPartial = "translation.transcript.partial"
	EventTranscriptFinal   = "translation.transcript.final"
	EventUtteranceProduced = "translation.utterance.produced"
)

// TranscriptEvent is an interim or final recognition transcript.
type TranscriptEvent struct {
	EventType    string  `json:"eventType"`
	SessionID    string  `json:"sessionId"`
	LanguageCode string  `json:"languageCode"`
	Text         string  `json:"text"`
	IsFinal      bool    `json:"isFinal"`
	Confidence   float64 `json:"confidence,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// UtteranceEvent describes a finalized utterance after translation and synthesis.
type UtteranceEvent struct {
	EventType      string `json:"eventType"`
	UtteranceIndex int    `json:"utteranceIndex"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
	TargetLanguage string `json:"targetLanguage"`
	VoiceLanguage  string `json:"voiceLanguage"`
	ClipPath       string `json:"clipPath"`
	Timestamp      int64  `json:"timestamp"`
}

// Status is a point-in-time snapshot served on the status endpoint.
type Status struct {
	StartupTime       int64  `json:"startupTime"`
	SessionID         string `json:"sessionId"`
	SessionsStarted   int    `json:"sessionsStarted"`
	State             string `json:"state"`
	UtterancesQueued  int    `json:"utterancesProduced"`
	UtterancesPlayed  int    `json:"utterancesPlayed"`
	CaptureQueueDepth int    `json:"captureQueueDepth"`
}
