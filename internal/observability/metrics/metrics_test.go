package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBackendCall_CountsOnlyFailures(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBackendCall("translate", "Translate", "OK", 0.1)
	m.RecordBackendCall("translate", "Translate", "Unavailable", 0.2)
	m.RecordBackendCall("translate", "Translate", "Unavailable", 0.3)

	if got := testutil.ToFloat64(m.BackendErrors.WithLabelValues("translate", "Unavailable")); got != 2 {
		t.Errorf("expected 2 errors, got %v", got)
	}
	if got := testutil.CollectAndCount(m.BackendLatency); got != 1 {
		t.Errorf("expected 1 latency series, got %d", got)
	}
}

func TestRecordUtterances(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordUtteranceProduced(1)
	m.RecordUtteranceProduced(2)
	m.RecordUtterancePlayed(1.5, 1)

	if got := testutil.ToFloat64(m.UtterancesProduced); got != 2 {
		t.Errorf("expected 2 produced, got %v", got)
	}
	if got := testutil.ToFloat64(m.UtterancesPlayed); got != 1 {
		t.Errorf("expected 1 played, got %v", got)
	}
	if got := testutil.ToFloat64(m.PlaybackQueueDepth); got != 1 {
		t.Errorf("expected queue depth 1, got %v", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("t", "final", nil, 0.01)
	m.RecordKafkaPublish("t", "final", errors.New("broker down"), 0.01)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("t", "final")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("t", "final")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}
