package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/report"
	"github.com/UnendingLoop/IconConverter/internal/settings"
	"github.com/wb-go/wbf/retry"
)

const (
	HeaderEvent     = "X-Iconconv-Event"
	HeaderTimestamp = "X-Iconconv-Timestamp"
	HeaderSignature = "X-Iconconv-Signature"

	EventBatchFinished = "batch.finished"
)

// errPermanent - 4xx от получателя, повторять бессмысленно
var errPermanent = errors.New("webhook rejected the request")

type Webhook struct {
	url      string
	secret   string
	strategy retry.Strategy
	client   *http.Client
	now      func() time.Time
}

func NewWebhook(cfg settings.WebhookSettings) *Webhook {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}

	return &Webhook{
		url:    strings.TrimSpace(cfg.URL),
		secret: cfg.Secret,
		strategy: retry.Strategy{
			Attempts: attempts,
			Delay:    delay,
			Backoff:  2,
		},
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Notify POSTs the JSON report. 2xx is success, 4xx fails at once, anything else is retried.
func (w *Webhook) Notify(ctx context.Context, r *model.Report) error {
	if w.url == "" {
		return nil
	}

	body, _, err := report.Marshal(r, report.FormatJSON)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	timestamp := strconv.FormatInt(w.now().UTC().Unix(), 10)
	signature := w.sign(timestamp, body)
	logger := mwlogger.LoggerFromContext(ctx)

	delay := w.strategy.Delay
	var lastErr error
	for attempt := 1; attempt <= w.strategy.Attempts; attempt++ {
		lastErr = w.post(ctx, body, timestamp, signature)
		if lastErr == nil {
			logger.Info().Str("url", w.url).Int("attempt", attempt).Msg("Webhook delivered")
			return nil
		}
		if errors.Is(lastErr, errPermanent) || attempt == w.strategy.Attempts {
			break
		}

		logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("next_in", delay).Msg("Webhook delivery failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * w.strategy.Backoff)
	}

	return fmt.Errorf("webhook delivery failed: %w", lastErr)
}

func (w *Webhook) post(ctx context.Context, body []byte, timestamp, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, EventBatchFinished)
	req.Header.Set(HeaderTimestamp, timestamp)
	if signature != "" {
		req.Header.Set(HeaderSignature, signature)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status=%d", errPermanent, resp.StatusCode)
	default:
		return fmt.Errorf("webhook returned status=%d", resp.StatusCode)
	}
}

// sign - HMAC-SHA256 над "timestamp.body", пустой секрет - без подписи
func (w *Webhook) sign(timestamp string, body []byte) string {
	if w.secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
