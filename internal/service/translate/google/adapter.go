// Package google provides a Google Cloud Translation translator.
package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/translate"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
)

const backend = "translate"

// client is the subset of *translate.Client used here.
type client interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// Adapter implements translate.Translator using the Translation v2 API.
type Adapter struct {
	client  client
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a new Google translator.
func New(ctx context.Context, m *metrics.Metrics, opts ...option.ClientOption) (*Adapter, error) {
	c, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate client: %w", err)
	}
	return newAdapter(c, m), nil
}

func newAdapter(c client, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Adapter{
		client:  c,
		metrics: m,
		logger:  logging.WithComponent("translate-google"),
	}
}

// Translate translates text into target. The source language is detected.
func (a *Adapter) Translate(ctx context.Context, text, target string) (string, error) {
	tag, err := language.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target language %q: %w", target, err)
	}

	start := time.Now()
	resp, err := a.client.Translate(ctx, []string{text}, tag, nil)
	a.metrics.RecordBackendCall(backend, "Translate", code(err), time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(resp) == 0 {
		return "", errors.New("translate: empty response")
	}

	a.logger.Debug().
		Str("target", tag.String()).
		Str("source", resp[0].Source.String()).
		Msg("Translated utterance")
	return resp[0].Text, nil
}

// Close closes the translate client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// code labels REST errors by HTTP status.
func code(err error) string {
	if err == nil {
		return "OK"
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Code)
	}
	return "error"
}
