package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter(), "metric did not contain Counter value")
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok, "SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL returns error", jobName: "etl", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "movieflix_etl"},
		{name: "explicit job name is preserved", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobName, b.jobName)
			assert.Equal(t, tt.gatewayURL, b.gatewayURL)
			assert.NotNil(t, b.stepCounter)
			assert.NotNil(t, b.stepDuration)
			assert.NotNil(t, b.recordCounter)
			assert.NotNil(t, b.batchCounter)
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("etl", "http://example.com")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"step": "reset", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"entity": "ratings", "kind": metrics.KindRejected})
	b.IncCounter(metrics.RecordsTotal, 2, metrics.Labels{"entity": "ratings", "kind": metrics.KindRejected})
	b.IncCounter(metrics.BatchesTotal, 2, metrics.Labels{"table": "movies"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 3.0, readCounterValue(t, b.stepCounter.WithLabelValues("reset", "success")))
	assert.Equal(t, 7.0, readCounterValue(t, b.recordCounter.WithLabelValues("ratings", "rejected")))
	assert.Equal(t, 0.0, readCounterValue(t, b.recordCounter.WithLabelValues("movies", "rejected")))
	assert.Equal(t, 2.0, readCounterValue(t, b.batchCounter.WithLabelValues("movies")))
}

func TestIncCounterNilMetrics(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
		b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"entity": "movies", "kind": "loaded"})
		b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{})
		b.ObserveHistogram(metrics.StepDurationSeconds, 1, metrics.Labels{})
	})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("etl", "http://example.com")
	require.NoError(t, err)

	labels := metrics.Labels{"step": "views", "status": "success"}
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, labels)
	b.ObserveHistogram("other_metric", 2.0, labels)

	count, sum := readSummaryCountSum(t, b.stepDuration, "views", "success")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 1.5, sum)
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	type pushRequest struct {
		method string
		path   string
		body   int
	}
	reqCh := make(chan pushRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequest{method: r.Method, path: r.URL.Path, body: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("movieflix_etl", server.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "readiness", "status": "success"})

	require.NoError(t, b.Flush())

	select {
	case got := <-reqCh:
		assert.Equal(t, http.MethodPut, got.method)
		assert.Equal(t, "/metrics/job/movieflix_etl", got.path)
		assert.Positive(t, got.body)
	default:
		t.Fatal("Flush() did not send a request to the Pushgateway")
	}
}

func TestFlushReportsGatewayErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("etl", server.URL)
	require.NoError(t, err)

	err = b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompush: push to")
}

func BenchmarkIncCounterRecord(b *testing.B) {
	backend, err := NewBackend("etl", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"entity": "ratings", "kind": "loaded"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter(metrics.RecordsTotal, 1, labels)
	}
}
