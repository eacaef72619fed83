// Package transcribe wraps the speech-to-text provider API used to turn
// call recordings into transcripts.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/call-insight/internal/resilience"
)

const (
	defaultBaseURL  = "http://localhost:8085"
	defaultModel    = "whisper-large-v3"
	defaultLanguage = "he"
)

// defaultRetry tunes the generic retry settings for uploads: fewer, quicker
// attempts than the package default since uploads themselves are slow.
func defaultRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 3
	cfg.InitialBackoff = 250 * time.Millisecond
	cfg.MaxBackoff = 2 * time.Second
	return cfg
}

// Client performs audio transcription against the provider API.
type Client interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcription, error)
}

// Transcription is the decoded response from POST /v1/transcriptions.
type Transcription struct {
	Text         string  `json:"text"`
	Language     string  `json:"language"`
	DurationSecs float64 `json:"duration"`
	WordCount    int     `json:"word_count"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default provider base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithAPIKey sets the bearer token sent with each request. Self-hosted
// deployments typically run without one.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithModel overrides the default transcription model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithLanguage overrides the default spoken-language hint.
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.language = lang
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (1 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for uploads.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a transcription API client. Uploads are large, so the
// default http.Client timeout is generous; callers bound individual requests
// with their own context deadlines.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  defaultBaseURL,
		model:    defaultModel,
		language: defaultLanguage,
		limiter:  rate.NewLimiter(1, 1),
		retry:    defaultRetry(),
		http: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Transcribe uploads the audio file and returns the provider's transcription.
// Transient failures (timeouts, 429, 5xx) are retried with backoff; other
// 4xx responses fail immediately.
func (c *httpClient) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("transcribe", "upload")
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Transcription, error) {
		return c.upload(ctx, audioPath)
	})
}

// upload performs a single rate-limited multipart POST. The request body is
// rebuilt from the file on every attempt.
func (c *httpClient) upload(ctx context.Context, audioPath string) (*Transcription, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "transcribe: rate limit")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, eris.Wrapf(err, "transcribe: open audio %s", audioPath)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, eris.Wrap(err, "transcribe: build multipart body")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, eris.Wrapf(err, "transcribe: read audio %s", audioPath)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, eris.Wrap(err, "transcribe: write model field")
	}
	if err := w.WriteField("language", c.language); err != nil {
		return nil, eris.Wrap(err, "transcribe: write language field")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "transcribe: finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", &body)
	if err != nil {
		return nil, eris.Wrap(err, "transcribe: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "transcribe: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "transcribe: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("transcribe: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var result Transcription
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "transcribe: unmarshal response")
	}
	return &result, nil
}
