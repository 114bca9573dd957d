package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics/datadog"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

func writeLake(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"filmes.csv":  "id,title,genre,year\n1,Central do Brasil,Drama,1998\n2,Cidade de Deus,,2002\n",
		"users.csv":   "id,name,age,country\n1,Ana,34,BR\n2,Joao,,PT\n",
		"ratings.csv": "id,user_id,movie_id,score\n1,1,1,5\n2,2,1,4\n3,2,2,9\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func sqliteEnv(t *testing.T, lake string) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DB", filepath.Join(t.TempDir(), "dw.sqlite"))
	t.Setenv("DATA_LAKE_DIR", lake)
	t.Setenv("READY_MAX_ATTEMPTS", "1")
	t.Setenv("METRICS_BACKEND", "none")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRejectsPositionalArgs(t *testing.T) {
	_, err := execute(t, "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRunEndToEndOnSQLite(t *testing.T) {
	sqliteEnv(t, writeLake(t))

	out, err := execute(t)
	require.NoError(t, err)

	assert.Contains(t, out, `msg="records loaded" entity=ratings table=ratings count=2`)
	assert.Contains(t, out, "=== ANALYTICS ===")
	assert.Contains(t, out, "[QUERY] Best genre:")
	assert.Contains(t, out, "Central do Brasil")
	assert.Contains(t, out, `msg="etl completed successfully"`)
}

func TestSkipAnalyticsFlag(t *testing.T) {
	sqliteEnv(t, writeLake(t))

	out, err := execute(t, "--skip-analytics")
	require.NoError(t, err)
	assert.NotContains(t, out, "=== ANALYTICS ===")
}

func TestDataLakeFlagOverridesEnv(t *testing.T) {
	sqliteEnv(t, t.TempDir())

	_, err := execute(t, "--data-lake-dir", writeLake(t))
	require.NoError(t, err)
}

func TestMissingSourceFails(t *testing.T) {
	sqliteEnv(t, t.TempDir())

	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filmes.csv")
}

func TestValidateOnlyDoesNotOpenWarehouse(t *testing.T) {
	opened := false
	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		opened = true
		return orig(ctx, cfg)
	}
	t.Cleanup(func() { newRepositoryFn = orig })

	sqliteEnv(t, writeLake(t))
	out, err := execute(t, "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, `msg="configuration is valid"`)
	assert.False(t, opened)
}

func TestInvalidConfigIsFatal(t *testing.T) {
	sqliteEnv(t, writeLake(t))
	t.Setenv("STORE_DRIVER", "oracle")
	t.Setenv("LOAD_BATCH_SIZE", "0")

	out, err := execute(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, err.Error(), "2 issue(s)")
	assert.Contains(t, out, "path=store.driver")
	assert.Contains(t, out, "path=load.batch_size")
}

func TestMalformedEnvIsFatal(t *testing.T) {
	sqliteEnv(t, writeLake(t))
	t.Setenv("READY_MAX_ATTEMPTS", "many")

	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ready.max_attempts")
}

func TestOpenFailureIsWrapped(t *testing.T) {
	orig := newRepositoryFn
	newRepositoryFn = func(context.Context, storage.Config) (storage.Repository, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	t.Cleanup(func() { newRepositoryFn = orig })

	sqliteEnv(t, writeLake(t))
	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open warehouse: dial tcp: connection refused")
}

type recordingBackend struct {
	flushed int
	batches float64
}

func (r *recordingBackend) IncCounter(name string, delta float64, _ metrics.Labels) {
	if name == metrics.BatchesTotal {
		r.batches += delta
	}
}
func (r *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recordingBackend) Flush() error {
	r.flushed++
	return nil
}

func TestMetricsBackendIsFlushed(t *testing.T) {
	rb := &recordingBackend{}
	orig := newDatadogBackendFn
	var got datadog.Config
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		got = cfg
		return rb, nil
	}
	t.Cleanup(func() { newDatadogBackendFn = orig })

	sqliteEnv(t, writeLake(t))
	t.Setenv("METRICS_BACKEND", "datadog")
	t.Setenv("DOGSTATSD_ADDR", "10.0.0.1:8125")

	_, err := execute(t, "--skip-analytics")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8125", got.Addr)
	assert.Equal(t, []string{"job:movieflix_etl"}, got.GlobalTags)
	assert.Equal(t, 1, rb.flushed)
	assert.Equal(t, 3.0, rb.batches, "one batch per table")
}

func TestMetricsInitFailureIsNotFatal(t *testing.T) {
	orig := newPushBackendFn
	newPushBackendFn = func(string, string) (metrics.Backend, error) {
		return nil, errors.New("bad url")
	}
	t.Cleanup(func() { newPushBackendFn = orig })

	sqliteEnv(t, writeLake(t))
	t.Setenv("METRICS_BACKEND", "pushgateway")

	out, err := execute(t, "--skip-analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "metrics backend init failed")
}
