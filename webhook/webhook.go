// Package webhook delivers scrape lifecycle events to a configured
// receiver. Delivery is fire-and-forget from the caller's point of view:
// events are queued and a single background worker posts them with
// bounded retries.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/config"
)

// Event types delivered to the receiver.
const (
	EventScraped = "posting.scraped"
	EventFailed  = "posting.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the request body as
// "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Lnkd-Signature"

// queueSize bounds the pending event queue. Enqueue drops when full.
const queueSize = 64

// retryDelays are the waits before each delivery attempt.
var retryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Event is the payload sent to the webhook receiver.
type Event struct {
	Type      string `json:"event"`           // "posting.scraped" or "posting.failed"
	Key       string `json:"key,omitempty"`   // posting key, set on scraped events
	URL       string `json:"url"`             // posting URL
	Error     string `json:"error,omitempty"` // failure summary, set on failed events
	Timestamp int64  `json:"timestamp"`       // unix seconds
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
// Header: X-Lnkd-Signature: sha256=<hex>
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Lnkd-Webhook/1.0")

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set(SignatureHeader, "sha256="+sig)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notifier queues events and delivers them from a single background
// worker. A Notifier built without a receiver URL is disabled: every
// notification is a silent no-op.
type Notifier struct {
	url     string
	secret  string
	timeout time.Duration

	queue     chan *Event
	closeOnce sync.Once
}

// NewNotifier builds a Notifier from config and starts its worker.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	n := &Notifier{
		url:     cfg.URL,
		secret:  cfg.Secret,
		timeout: cfg.Timeout,
	}
	if n.url == "" {
		return n
	}
	if n.timeout <= 0 {
		n.timeout = 10 * time.Second
	}

	n.queue = make(chan *Event, queueSize)
	go n.worker()
	return n
}

// PostingScraped announces a successful extraction.
func (n *Notifier) PostingScraped(key, url string) {
	n.enqueue(&Event{
		Type:      EventScraped,
		Key:       key,
		URL:       url,
		Timestamp: time.Now().Unix(),
	})
}

// PostingFailed announces an exhausted scrape.
func (n *Notifier) PostingFailed(url string, err error) {
	event := &Event{
		Type:      EventFailed,
		URL:       url,
		Timestamp: time.Now().Unix(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	n.enqueue(event)
}

// Close stops accepting events. Already queued events are still
// delivered by the worker.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		if n.queue != nil {
			close(n.queue)
		}
	})
}

// enqueue adds the event without blocking; a full queue drops it.
func (n *Notifier) enqueue(event *Event) {
	if n.queue == nil {
		return
	}
	select {
	case n.queue <- event:
	default:
		slog.Warn("webhook queue full, dropping event",
			"event", event.Type, "url", event.URL)
	}
}

func (n *Notifier) worker() {
	for event := range n.queue {
		n.deliverWithRetries(event)
	}
}

// deliverWithRetries posts one event, retrying on failure with the
// fixed delay schedule.
func (n *Notifier) deliverWithRetries(event *Event) {
	for attempt, delay := range retryDelays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := Deliver(ctx, n.url, n.secret, event)
		cancel()
		if err == nil {
			slog.Info("webhook delivered",
				"event", event.Type,
				"key", event.Key,
				"attempt", attempt+1,
			)
			return
		}
		slog.Warn("webhook delivery failed",
			"event", event.Type,
			"key", event.Key,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"event", event.Type,
		"key", event.Key,
	)
}
