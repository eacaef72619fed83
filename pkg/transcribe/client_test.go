package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call-001.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake-mp3-bytes"), 0o644))
	return path
}

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transcriptions", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "he", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "call-001.mp3", hdr.Filename)
		assert.Equal(t, []byte("fake-mp3-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"שלום, אני מעוניין בנכס","language":"he","duration":42.5,"word_count":4}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	tr, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "שלום, אני מעוניין בנכס", tr.Text)
	assert.Equal(t, "he", tr.Language)
	assert.InDelta(t, 42.5, tr.DurationSecs, 0.001)
	assert.Equal(t, 4, tr.WordCount)
}

func TestTranscribe_SendsAPIKeyAndModelOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello","language":"en","duration":1,"word_count":1}`))
	}))
	defer srv.Close()

	client := NewClient(
		WithBaseURL(srv.URL),
		WithAPIKey("test-key"),
		WithModel("whisper-large-v3-turbo"),
		WithLanguage("en"),
	)
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.NoError(t, err)
}

func TestTranscribe_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	tr, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
	assert.Nil(t, tr)
}

func TestTranscribe_MissingFile(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:0"))
	_, err := client.Transcribe(context.Background(), "/nonexistent/call.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open audio")
}

func TestTranscribe_Retries5xx(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"recovered","language":"he","duration":3,"word_count":1}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	tr, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "recovered", tr.Text)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestTranscribe_Retries429(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := attempts.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ok","language":"he","duration":3,"word_count":1}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestTranscribe_NoRetryOn4xx(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnsupportedMediaType)
		_, _ = w.Write([]byte(`{"error":"unsupported media type"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "415")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestTranscribe_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(defaultRetry().MaxAttempts), attempts.Load())
}

func TestTranscribe_WithRetryOverride(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	retry := defaultRetry()
	retry.MaxAttempts = 1
	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), WithRetry(retry))
	_, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestTranscribe_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ok","language":"he","duration":1,"word_count":1}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Transcribe(ctx, writeAudioFixture(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c := NewClient()
	hc := c.(*httpClient)
	assert.Equal(t, defaultBaseURL, hc.baseURL)
	assert.Equal(t, defaultModel, hc.model)
	assert.Equal(t, defaultLanguage, hc.language)
	assert.Empty(t, hc.apiKey)
	assert.NotNil(t, hc.limiter)
	assert.NotNil(t, hc.http)
	assert.NotNil(t, hc.http.Transport)
	assert.Equal(t, 3, hc.retry.MaxAttempts)
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	custom := &http.Client{}
	c := NewClient(WithHTTPClient(custom))
	hc := c.(*httpClient)
	assert.Equal(t, custom, hc.http)
}
