// Package google provides a Google Cloud Text-to-Speech synthesizer.
package google

import (
	"context"
	"errors"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"ai-speech-translation-service/internal/observability"
	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/tts"
)

// client is the subset of *texttospeech.Client used here.
type client interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Adapter implements tts.Synthesizer with MP3 output.
type Adapter struct {
	client client
	logger zerolog.Logger
}

// New creates a new Google synthesizer.
func New(ctx context.Context, m *metrics.Metrics, opts ...option.ClientOption) (*Adapter, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	opts = append(opts, option.WithGRPCDialOption(
		grpc.WithChainUnaryInterceptor(observability.UnaryClientInterceptor(m, "texttospeech")),
	))
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}
	return newAdapter(c), nil
}

func newAdapter(c client) *Adapter {
	return &Adapter{client: c, logger: logging.WithComponent("tts-google")}
}

// Synthesize renders text in languageCode with a voice of the given gender.
func (a *Adapter) Synthesize(ctx context.Context, text, languageCode string, gender tts.Gender) ([]byte, error) {
	resp, err := a.client.SynthesizeSpeech(ctx, request(text, languageCode, gender))
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("synthesize speech: empty audio")
	}
	a.logger.Debug().
		Str("languageCode", languageCode).
		Int("bytes", len(resp.GetAudioContent())).
		Msg("Synthesized utterance")
	return resp.GetAudioContent(), nil
}

// Close closes the texttospeech client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func request(text, languageCode string, gender tts.Gender) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   parseGender(gender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}

// parseGender maps a gender to the protobuf enum. Unknown values fall back
// to FEMALE.
func parseGender(g tts.Gender) texttospeechpb.SsmlVoiceGender {
	v, ok := texttospeechpb.SsmlVoiceGender_value[string(g)]
	if !ok || v == int32(texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED) {
		return texttospeechpb.SsmlVoiceGender_FEMALE
	}
	return texttospeechpb.SsmlVoiceGender(v)
}
