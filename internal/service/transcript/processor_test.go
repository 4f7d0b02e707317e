package transcript

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-speech-translation-service/internal/models"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/stt"
	"ai-speech-translation-service/internal/service/utterance"
)

// scriptedStream replays responses, then io.EOF or err.
type scriptedStream struct {
	responses []*stt.Response
	err       error
	closed    bool
}

func (s *scriptedStream) Recv() (*stt.Response, error) {
	if len(s.responses) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

func interim(text string) *stt.Response {
	return &stt.Response{Results: []stt.Result{{Alternatives: []stt.Alternative{{Transcript: text}}}}}
}

func final(text string) *stt.Response {
	return &stt.Response{Results: []stt.Result{{IsFinal: true, Alternatives: []stt.Alternative{{Transcript: text, Confidence: 0.9}}}}}
}

// recordingDispatcher records dispatched texts.
type recordingDispatcher struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	return d.err
}

type recordingPublisher struct {
	events []models.TranscriptEvent
}

func (p *recordingPublisher) PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestProcessor(display io.Writer, d Dispatcher, opts ...Option) *Processor {
	opts = append([]Option{WithMetrics(metrics.NewMetrics(prometheus.NewRegistry()))}, opts...)
	return NewProcessor(display, d, opts...)
}

func TestIsExitCommand(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"exit", true},
		{"quit", true},
		{"please EXIT now", true},
		{"Quit.", true},
		{"okay, exit", true},
		{"does it exist", false},
		{"exiting the building", false},
		{"quite good", false},
		{"equity", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsExitCommand(tt.text); got != tt.want {
				t.Errorf("IsExitCommand(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestProcess_InterimPaddingAndFinalNewline(t *testing.T) {
	var display bytes.Buffer
	d := &recordingDispatcher{}
	p := newTestProcessor(&display, d)

	stream := &scriptedStream{responses: []*stt.Response{
		interim("hello wor"),
		interim("hi"),
		final("hello world"),
		interim("ab"),
		final("a"),
	}}

	outcome, err := p.Process(context.Background(), stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeStreamEnded {
		t.Errorf("expected OutcomeStreamEnded, got %v", outcome)
	}

	want := "hello wor\r" +
		"hi       \r" + // 9 - 2 = 7 spaces
		"hello world\n" + // longer than previous, no padding
		"ab\r" +
		"a \n" // 2 - 1 = 1 space
	if display.String() != want {
		t.Errorf("display mismatch:\n got %q\nwant %q", display.String(), want)
	}
	if len(d.texts) != 2 || d.texts[0] != "hello world" || d.texts[1] != "a" {
		t.Errorf("unexpected dispatched texts %q", d.texts)
	}
}

func TestProcess_PaddingCountsRunes(t *testing.T) {
	var display bytes.Buffer
	p := newTestProcessor(&display, &recordingDispatcher{})

	p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{
		interim("héllo"),
		interim("hé"),
	}})

	if want := "héllo\rhé   \r"; display.String() != want {
		t.Errorf("got %q, want %q", display.String(), want)
	}
}

func TestProcess_ExitCommandStopsWithoutDispatch(t *testing.T) {
	var display bytes.Buffer
	d := &recordingDispatcher{}
	exited := 0
	p := newTestProcessor(&display, d, WithExitHook(func() { exited++ }))

	stream := &scriptedStream{responses: []*stt.Response{
		final("good morning"),
		final("okay Exit please"),
		final("never seen"),
	}}

	outcome, err := p.Process(context.Background(), stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeExit {
		t.Errorf("expected OutcomeExit, got %v", outcome)
	}
	if len(d.texts) != 1 || d.texts[0] != "good morning" {
		t.Errorf("expected only the first utterance dispatched, got %q", d.texts)
	}
	if exited != 1 {
		t.Errorf("expected exit hook once, got %d", exited)
	}
	if p.State() != utterance.StateTerminating {
		t.Errorf("expected TERMINATING, got %v", p.State())
	}
	if want := "good morning\nokay Exit please\n"; display.String() != want {
		t.Errorf("display %q, want %q", display.String(), want)
	}

	// Terminal: further sessions are not processed.
	outcome, _ = p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{final("more")}})
	if outcome != OutcomeExit || len(d.texts) != 1 {
		t.Errorf("expected terminal processor to ignore new streams")
	}
}

func TestProcess_ExistIsNotExit(t *testing.T) {
	d := &recordingDispatcher{}
	p := newTestProcessor(io.Discard, d)

	outcome, _ := p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{
		final("does it exist"),
	}})

	if outcome != OutcomeStreamEnded {
		t.Errorf("expected OutcomeStreamEnded, got %v", outcome)
	}
	if len(d.texts) != 1 {
		t.Errorf("expected 'exist' to be translated, got %q", d.texts)
	}
}

func TestProcess_SkipsEmptyResponses(t *testing.T) {
	var display bytes.Buffer
	d := &recordingDispatcher{}
	p := newTestProcessor(&display, d)

	stream := &scriptedStream{responses: []*stt.Response{
		{},
		{Results: []stt.Result{{IsFinal: true}}},
		final("kept"),
	}}

	if _, err := p.Process(context.Background(), stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if display.String() != "kept\n" {
		t.Errorf("display %q", display.String())
	}
	if len(d.texts) != 1 {
		t.Errorf("expected one dispatch, got %d", len(d.texts))
	}
}

func TestProcess_UsesFirstResultTopAlternative(t *testing.T) {
	d := &recordingDispatcher{}
	p := newTestProcessor(io.Discard, d)

	p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{{
		Results: []stt.Result{
			{IsFinal: true, Alternatives: []stt.Alternative{{Transcript: "first"}, {Transcript: "second"}}},
			{IsFinal: true, Alternatives: []stt.Alternative{{Transcript: "other"}}},
		},
	}}})

	if len(d.texts) != 1 || d.texts[0] != "first" {
		t.Errorf("expected 'first', got %q", d.texts)
	}
}

func TestProcess_ReturnsErrors(t *testing.T) {
	streamErr := errors.New("stream broke")
	dispatchErr := errors.New("translate failed")

	tests := []struct {
		name       string
		stream     *scriptedStream
		dispatcher *recordingDispatcher
		wantErr    error
	}{
		{"stream error", &scriptedStream{err: streamErr}, &recordingDispatcher{}, streamErr},
		{"dispatch error", &scriptedStream{responses: []*stt.Response{final("hi"), final("again")}}, &recordingDispatcher{err: dispatchErr}, dispatchErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor(io.Discard, tt.dispatcher)
			_, err := p.Process(context.Background(), tt.stream)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(tt.dispatcher.texts) > 1 {
				t.Errorf("processing continued after error")
			}
		})
	}
}

func TestProcess_PublishesAndCounts(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	pub := &recordingPublisher{}
	p := NewProcessor(io.Discard, &recordingDispatcher{}, WithMetrics(m), WithPublisher(pub), WithLanguage("en-US"))
	p.SetSession("sess-1")

	p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{
		interim("he"),
		final("hello"),
	}})

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].EventType != models.EventTranscriptPartial || pub.events[1].EventType != models.EventTranscriptFinal {
		t.Errorf("unexpected event types %q, %q", pub.events[0].EventType, pub.events[1].EventType)
	}
	if pub.events[1].SessionID != "sess-1" || pub.events[1].LanguageCode != "en-US" || !pub.events[1].IsFinal {
		t.Errorf("unexpected final event %+v", pub.events[1])
	}
	if got := testutil.ToFloat64(m.TranscriptsPartial); got != 1 {
		t.Errorf("expected 1 partial, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranscriptsFinal); got != 1 {
		t.Errorf("expected 1 final, got %v", got)
	}
}

func TestProcess_PaddingResetsPerSession(t *testing.T) {
	var display bytes.Buffer
	p := newTestProcessor(&display, &recordingDispatcher{})

	p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{interim("a long line")}})
	display.Reset()
	p.Process(context.Background(), &scriptedStream{responses: []*stt.Response{interim("x")}})

	if display.String() != "x\r" {
		t.Errorf("expected fresh session to start unpadded, got %q", display.String())
	}
}
