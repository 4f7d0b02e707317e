// Package tts defines the speech synthesis client.
package tts

import (
	"context"
	"fmt"
	"strings"
)

// Gender selects the voice.
type Gender string

const (
	GenderFemale  Gender = "FEMALE"
	GenderMale    Gender = "MALE"
	GenderNeutral Gender = "NEUTRAL"
)

// ParseGender accepts FEMALE, MALE or NEUTRAL in any case.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case GenderFemale, GenderMale, GenderNeutral:
		return g, nil
	default:
		return "", fmt.Errorf("unknown voice gender %q", s)
	}
}

// Synthesizer renders text as MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string, gender Gender) ([]byte, error)
	Close() error
}
