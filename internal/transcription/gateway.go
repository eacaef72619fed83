// Package transcription mediates between the analysis pipeline and the
// speech-to-text provider.
package transcription

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-insight/internal/resilience"
	"github.com/sells-group/call-insight/pkg/transcribe"
)

const defaultTimeout = 120 * time.Second

// Result is what the pipeline consumes from a successful transcription.
type Result struct {
	Text         string  `json:"text"`
	Language     string  `json:"language"`
	DurationSecs float64 `json:"durationSecs"`
	WordCount    int     `json:"wordCount"`
}

// Gateway validates audio assets and produces transcripts.
type Gateway interface {
	Validate(audioPath string) error
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Options configures the gateway.
type Options struct {
	// Timeout bounds a single provider call, including upload. Default: 120s.
	Timeout time.Duration

	// Breaker guards the provider. When nil a breaker with default settings
	// is created.
	Breaker *resilience.CircuitBreaker
}

type providerGateway struct {
	client  transcribe.Client
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

// NewGateway wraps a provider client with the call bounds the pipeline
// requires.
func NewGateway(client transcribe.Client, opts Options) Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	breaker := opts.Breaker
	if breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("transcription circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
		breaker = resilience.NewCircuitBreaker(cfg)
	}
	return &providerGateway{client: client, timeout: timeout, breaker: breaker}
}

// supportedExtensions lists the audio containers the provider accepts.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

func (g *providerGateway) Validate(audioPath string) error {
	if strings.TrimSpace(audioPath) == "" {
		return eris.New("transcription: empty audio path")
	}
	ext := strings.ToLower(filepath.Ext(audioPath))
	if !supportedExtensions[ext] {
		return eris.Errorf("transcription: unsupported audio format %q", ext)
	}
	return nil
}

func (g *providerGateway) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	tr, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*transcribe.Transcription, error) {
		return g.client.Transcribe(ctx, audioPath)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "transcription: transcribe %s", audioPath)
	}

	wordCount := tr.WordCount
	if wordCount <= 0 {
		wordCount = len(strings.Fields(tr.Text))
	}

	// Transcript text stays out of the logs; metadata only.
	zap.L().Info("transcription completed",
		zap.String("audio_path", audioPath),
		zap.Float64("duration_secs", tr.DurationSecs),
		zap.Int("word_count", wordCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Text:         tr.Text,
		Language:     tr.Language,
		DurationSecs: tr.DurationSecs,
		WordCount:    wordCount,
	}, nil
}
