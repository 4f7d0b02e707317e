// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"ai-speech-translation-service/internal/observability"
	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/stt"
)

// Adapter implements stt.Recognizer using Google Cloud Speech-to-Text.
type Adapter struct {
	client  *speech.Client
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a new Google STT recognizer.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS unless opts say otherwise.
func New(ctx context.Context, m *metrics.Metrics, opts ...option.ClientOption) (*Adapter, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	opts = append(opts, option.WithGRPCDialOption(
		grpc.WithChainStreamInterceptor(observability.StreamClientInterceptor(m, "speech")),
	))
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{
		client:  c,
		metrics: m,
		logger:  logging.WithComponent("stt-google"),
	}, nil
}

// StreamingRecognize opens a stream, sends the streaming config, and pumps
// audio from src on a separate goroutine until src is exhausted.
func (a *Adapter) StreamingRecognize(ctx context.Context, cfg stt.Config, src stt.AudioSource) (stt.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	client, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open recognize stream: %w", err)
	}

	// Send streaming config as the first message
	if err := client.Send(configRequest(cfg)); err != nil {
		cancel()
		return nil, fmt.Errorf("send streaming config: %w", err)
	}

	s := &stream{
		client: client,
		cancel: cancel,
		logger: a.logger,
		done:   make(chan struct{}),
	}
	go s.pump(ctx, src)
	return s, nil
}

// Close closes the speech client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

type stream struct {
	client speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
	logger zerolog.Logger
	done   chan struct{}

	mu      sync.Mutex
	sendErr error
}

func (s *stream) pump(ctx context.Context, src stt.AudioSource) {
	defer close(s.done)
	sent := 0
	for {
		audio, ok := src.Next(ctx)
		if !ok {
			break
		}
		err := s.client.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: audio,
			},
		})
		if err != nil {
			// The real error surfaces from Recv.
			if !errors.Is(err, io.EOF) {
				s.setErr(err)
			}
			return
		}
		sent += len(audio)
	}
	if err := s.client.CloseSend(); err != nil {
		s.setErr(err)
	}
	s.logger.Debug().Int("bytesSent", sent).Msg("Audio stream half-closed")
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	if s.sendErr == nil {
		s.sendErr = err
	}
	s.mu.Unlock()
}

// Recv receives the next response. An error carried inside the response is
// returned as a gRPC status error.
func (s *stream) Recv() (*stt.Response, error) {
	resp, err := s.client.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.mu.Lock()
			sendErr := s.sendErr
			s.mu.Unlock()
			if sendErr != nil {
				return nil, fmt.Errorf("send audio: %w", sendErr)
			}
		}
		return nil, err
	}
	if resp.Error != nil && resp.Error.Code != 0 {
		return nil, status.ErrorProto(resp.Error)
	}
	return convertResponse(resp), nil
}

// Close aborts the stream and waits for the audio pump to stop.
func (s *stream) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func configRequest(cfg stt.Config) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:              parseAudioEncoding(cfg.AudioEncoding),
					SampleRateHertz:       cfg.SampleRateHz,
					LanguageCode:          cfg.LanguageCode,
					MaxAlternatives:       cfg.MaxAlternatives,
					EnableWordTimeOffsets: cfg.EnableWordTimeOffsets,
				},
				InterimResults: cfg.InterimResults,
			},
		},
	}
}

func convertResponse(resp *speechpb.StreamingRecognizeResponse) *stt.Response {
	out := &stt.Response{Results: make([]stt.Result, 0, len(resp.Results))}
	for _, r := range resp.Results {
		res := stt.Result{
			IsFinal:      r.IsFinal,
			Stability:    r.Stability,
			ResultEnd:    duration(r.ResultEndTime),
			Alternatives: make([]stt.Alternative, 0, len(r.Alternatives)),
		}
		for _, alt := range r.Alternatives {
			a := stt.Alternative{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
			}
			for _, w := range alt.Words {
				a.Words = append(a.Words, stt.Word{
					Word:  w.Word,
					Start: duration(w.StartTime),
					End:   duration(w.EndTime),
				})
			}
			res.Alternatives = append(res.Alternatives, a)
		}
		out.Results = append(out.Results, res)
	}
	return out
}

func duration(d *durationpb.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.AsDuration()
}

// parseAudioEncoding converts a string encoding name to the protobuf enum.
// Unknown names fall back to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	v, ok := speechpb.RecognitionConfig_AudioEncoding_value[encoding]
	if !ok || v == int32(speechpb.RecognitionConfig_ENCODING_UNSPECIFIED) {
		return speechpb.RecognitionConfig_LINEAR16
	}
	return speechpb.RecognitionConfig_AudioEncoding(v)
}
