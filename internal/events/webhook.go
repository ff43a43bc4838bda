package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Ledger-Signature"

// WebhookEvent is the body POSTed to every webhook target.
type WebhookEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DeliveryRecorder is an optional callback for recording delivery outcomes.
type DeliveryRecorder func(success bool)

// WebhookPublisher POSTs each event to a fixed set of URLs. Deliveries run
// in the background with retries; Publish returns once they are queued.
type WebhookPublisher struct {
	urls       []string
	secret     []byte
	httpClient *http.Client
	delays     []time.Duration
	onDelivery DeliveryRecorder
	wg         sync.WaitGroup
	logger     *zap.Logger
}

// NewWebhookPublisher creates a publisher for urls. An empty secret disables signing.
func NewWebhookPublisher(urls []string, secret string, logger *zap.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		urls:       urls,
		secret:     []byte(secret),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Retry with backoff: immediately, then 1s, 5s.
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second},
		logger: logger,
	}
}

// SetRetryDelays replaces the per-attempt delays; its length is the attempt count.
func (p *WebhookPublisher) SetRetryDelays(d ...time.Duration) {
	p.delays = d
}

// SetDeliveryRecorder configures the metrics callback.
func (p *WebhookPublisher) SetDeliveryRecorder(fn DeliveryRecorder) {
	p.onDelivery = fn
}

// Publish implements Publisher.
func (p *WebhookPublisher) Publish(_ context.Context, routingKey string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	body, err := json.Marshal(WebhookEvent{
		Type:      routingKey,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}
	sig := Sign(body, p.secret)

	for _, url := range p.urls {
		p.wg.Add(1)
		go func(url string) {
			defer p.wg.Done()
			p.deliver(url, routingKey, body, sig)
		}(url)
	}
	return nil
}

// Close waits for in-flight deliveries.
func (p *WebhookPublisher) Close() error {
	p.wg.Wait()
	return nil
}

// deliver runs detached from the publishing request, so it uses its own context.
func (p *WebhookPublisher) deliver(url, eventType string, body []byte, sig string) {
	for attempt, delay := range p.delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		err := p.post(url, body, sig)
		if p.onDelivery != nil {
			p.onDelivery(err == nil)
		}
		if err == nil {
			return
		}
		p.logger.Warn("webhook: delivery failed",
			zap.String("url", url),
			zap.String("event", eventType),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
}

func (p *WebhookPublisher) post(url string, body []byte, sig string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Sign returns "sha256=<hex hmac>" of body, or "" when secret is empty.
func Sign(body, secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Multi fans one event out to several publishers.
type Multi []Publisher

// Publish implements Publisher. Every publisher is tried; failures are joined.
func (m Multi) Publish(ctx context.Context, routingKey string, v any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, routingKey, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
