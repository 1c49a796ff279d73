// Package sender pushes probe results to the central asset API with retry
// logic. Reports that cannot be delivered are spooled per target and
// replayed before the next push.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/buffer"
	"github.com/Guliveer/assetprobe/internal/config"
)

const (
	// defaultMaxRetries is used when the config leaves max_retries unset.
	defaultMaxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// defaultRequestTimeout is the HTTP request timeout for each send attempt.
	defaultRequestTimeout = 10 * time.Second
)

// Option customizes a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the HTTP client used for pushes.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) { s.client = c }
}

// WithBuffer spools undeliverable reports to buf.
func WithBuffer(buf *buffer.Buffer) Option {
	return func(s *Sender) { s.buf = buf }
}

// WithRetryDelay sets the base delay of the exponential backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Sender) { s.baseDelay = d }
}

// Sender delivers reports to the API endpoint.
type Sender struct {
	client     *http.Client
	endpoint   string
	token      string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
	buf        *buffer.Buffer
}

// New creates a new Sender from the API section of the configuration.
func New(cfg config.APIConfig, logger *zap.Logger, opts ...Option) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	s := &Sender{
		client:     &http.Client{Timeout: timeout},
		endpoint:   cfg.URL,
		token:      cfg.Token,
		maxRetries: retries,
		baseDelay:  baseRetryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push delivers the report carried by e. On failure after all retries the
// entry is spooled when a buffer is configured, and the last error is
// returned. Attempts counts every request made for the entry, across runs.
func (s *Sender) Push(ctx context.Context, e buffer.Entry) error {
	if e.Report.Asset == nil {
		return fmt.Errorf("report has no asset")
	}
	if e.CollectedAt.IsZero() {
		e.CollectedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	log := s.logger.With(
		zap.String("target", e.Target),
		zap.String("probe_id", e.ProbeID),
		zap.String("asset", e.Report.Asset.Name))

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * s.baseDelay
			log.Warn("Retrying push",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				s.spool(log, e)
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		e.Attempts++
		lastErr = s.doSend(ctx, data)
		if lastErr == nil {
			log.Debug("Report pushed", zap.Int("attempts", e.Attempts))
			return nil
		}

		// Rate limited: spool immediately without further retries
		if isRateLimited(lastErr) {
			log.Warn("Rate limited by server, spooling report", zap.Error(lastErr))
			s.spool(log, e)
			return lastErr
		}

		log.Warn("Push failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	log.Error("All retries exhausted", zap.Int("attempts", e.Attempts))
	s.spool(log, e)
	return lastErr
}

// doSend performs a single HTTP POST to the push endpoint.
func (s *Sender) doSend(ctx context.Context, body []byte) error {
	target, err := s.pushURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}

	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// pushURL appends the action and token query parameters to the endpoint.
func (s *Sender) pushURL() (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid api URL: %w", err)
	}
	q := u.Query()
	q.Set("action", "agent_push")
	q.Set("token", s.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// spool stores an undelivered entry in the local buffer.
func (s *Sender) spool(log *zap.Logger, e buffer.Entry) {
	if s.buf == nil {
		return
	}
	if err := s.buf.Store(e); err != nil {
		log.Error("Failed to spool report", zap.Error(err))
	}
}

// FlushBuffer attempts to send all previously spooled reports, oldest
// collection first. Reports that fail again are spooled again by Push.
func (s *Sender) FlushBuffer(ctx context.Context) {
	if s.buf == nil {
		return
	}

	entries, err := s.buf.RetrieveAll()
	if err != nil {
		s.logger.Error("Failed to retrieve spooled reports", zap.Error(err))
		return
	}

	if len(entries) == 0 {
		return
	}

	s.logger.Info("Flushing spooled reports", zap.Int("reports", len(entries)))

	for _, e := range entries {
		if ctx.Err() != nil {
			s.spool(s.logger, e)
			continue
		}
		_ = s.Push(ctx, e)
	}
}

// Spooled lists the reports still waiting for delivery. It is empty when no
// buffer is configured.
func (s *Sender) Spooled() ([]buffer.Entry, error) {
	if s.buf == nil {
		return nil, nil
	}
	return s.buf.Pending()
}

// rateLimitError indicates the server returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}

// isRateLimited checks whether an error is a rate limit response.
func isRateLimited(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}
