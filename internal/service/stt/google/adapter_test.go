package google

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"ai-speech-translation-service/internal/service/stt"
)

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"ENCODING_UNSPECIFIED", speechpb.RecognitionConfig_LINEAR16}, // fallback
		{"invalid", speechpb.RecognitionConfig_LINEAR16},              // fallback
		{"", speechpb.RecognitionConfig_LINEAR16},                     // fallback
		{"linear16", speechpb.RecognitionConfig_LINEAR16},             // lowercase -> fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConfigRequest(t *testing.T) {
	cfg := stt.DefaultConfig()
	cfg.LanguageCode = "fr-FR"

	req := configRequest(cfg).GetStreamingConfig()
	if req == nil {
		t.Fatal("expected streaming config request")
	}
	rc := req.GetConfig()
	if rc.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("expected LINEAR16, got %v", rc.GetEncoding())
	}
	if rc.GetSampleRateHertz() != 16000 {
		t.Errorf("expected 16000 Hz, got %d", rc.GetSampleRateHertz())
	}
	if rc.GetLanguageCode() != "fr-FR" {
		t.Errorf("expected fr-FR, got %s", rc.GetLanguageCode())
	}
	if rc.GetMaxAlternatives() != 1 || !rc.GetEnableWordTimeOffsets() {
		t.Errorf("unexpected alternatives/offsets: %d %v", rc.GetMaxAlternatives(), rc.GetEnableWordTimeOffsets())
	}
	if !req.GetInterimResults() {
		t.Error("expected interim results")
	}
}

func TestConvertResponse(t *testing.T) {
	resp := &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:       true,
			Stability:     0.9,
			ResultEndTime: durationpb.New(1500 * time.Millisecond),
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: "hello world",
				Confidence: 0.92,
				Words: []*speechpb.WordInfo{
					{Word: "hello", StartTime: durationpb.New(0), EndTime: durationpb.New(500 * time.Millisecond)},
					{Word: "world", StartTime: durationpb.New(600 * time.Millisecond)},
				},
			}},
		}},
	}

	got := convertResponse(resp)
	if len(got.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got.Results))
	}
	r := got.Results[0]
	if !r.IsFinal || r.ResultEnd != 1500*time.Millisecond {
		t.Errorf("unexpected result %+v", r)
	}
	alt := r.Alternatives[0]
	if alt.Transcript != "hello world" || alt.Confidence != 0.92 {
		t.Errorf("unexpected alternative %+v", alt)
	}
	if len(alt.Words) != 2 || alt.Words[0].End != 500*time.Millisecond || alt.Words[1].End != 0 {
		t.Errorf("unexpected words %+v", alt.Words)
	}
}

// fakeClient is a scripted Speech_StreamingRecognizeClient.
type fakeClient struct {
	grpc.ClientStream

	mu        sync.Mutex
	sent      [][]byte
	halfClose bool
	responses chan *speechpb.StreamingRecognizeResponse
	sendErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: make(chan *speechpb.StreamingRecognizeResponse, 8)}
}

func (f *fakeClient) Send(req *speechpb.StreamingRecognizeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req.GetAudioContent())
	return nil
}

func (f *fakeClient) CloseSend() error {
	f.mu.Lock()
	f.halfClose = true
	f.mu.Unlock()
	close(f.responses)
	return nil
}

func (f *fakeClient) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	resp, ok := <-f.responses
	if !ok {
		return nil, io.EOF
	}
	return resp, nil
}

type sliceSource struct {
	units [][]byte
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, bool) {
	if len(s.units) == 0 {
		return nil, false
	}
	u := s.units[0]
	s.units = s.units[1:]
	return u, true
}

func newTestStream(client *fakeClient, src stt.AudioSource) *stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{client: client, cancel: cancel, logger: zerolog.Nop(), done: make(chan struct{})}
	go s.pump(ctx, src)
	return s
}

func TestStream_PumpsAudioThenHalfCloses(t *testing.T) {
	client := newFakeClient()
	s := newTestStream(client, &sliceSource{units: [][]byte{[]byte("a"), []byte("bb")}})

	if _, err := s.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after half-close, got %v", err)
	}
	s.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.sent) != 2 || string(client.sent[1]) != "bb" {
		t.Errorf("unexpected audio sent: %q", client.sent)
	}
	if !client.halfClose {
		t.Error("expected CloseSend")
	}
}

func TestStream_RecvMapsResponseError(t *testing.T) {
	client := newFakeClient()
	client.responses <- &speechpb.StreamingRecognizeResponse{
		Error: &rpcstatus.Status{Code: int32(codes.OutOfRange), Message: "Exceeded maximum allowed stream duration"},
	}
	s := newTestStream(client, &sliceSource{})
	defer s.Close()

	_, err := s.Recv()
	if status.Code(err) != codes.OutOfRange {
		t.Errorf("expected OutOfRange, got %v", err)
	}
}
