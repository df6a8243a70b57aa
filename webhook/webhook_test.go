package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/config"
)

func TestDeliver_SignsBody(t *testing.T) {
	const secret = "test-secret"

	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	event := &Event{Type: EventScraped, Key: "linkedin_1", URL: "https://www.linkedin.com/jobs/view/1", Timestamp: 1700000000}
	if err := Deliver(context.Background(), srv.URL, secret, event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("unmarshal delivered body: %v", err)
	}
	if decoded.Type != EventScraped || decoded.Key != "linkedin_1" {
		t.Errorf("delivered event = %+v", decoded)
	}
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", &Event{Type: EventFailed}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotSig != "" {
		t.Errorf("unsigned delivery carried a signature header: %q", gotSig)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", &Event{Type: EventScraped}); err == nil {
		t.Fatal("Deliver should fail on a 500 response")
	}
}

func TestNotifier_DeliversQueuedEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var e Event
		if err := json.Unmarshal(body, &e); err == nil {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Secret: "s", Timeout: 2 * time.Second})
	defer n.Close()

	n.PostingScraped("linkedin_9", "https://www.linkedin.com/jobs/view/9")
	n.PostingFailed("https://www.linkedin.com/jobs/view/10", context.DeadlineExceeded)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(events) == 2
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("events not delivered in time, got %d", len(events))
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if events[0].Type != EventScraped || events[0].Key != "linkedin_9" {
		t.Errorf("first event = %+v, want scraped linkedin_9", events[0])
	}
	if events[1].Type != EventFailed || events[1].Error == "" {
		t.Errorf("second event = %+v, want failed with error text", events[1])
	}
	if events[1].Key != "" {
		t.Errorf("failed event carries a key: %q", events[1].Key)
	}
}

func TestNotifier_DisabledWithoutURL(t *testing.T) {
	n := NewNotifier(config.WebhookConfig{})
	defer n.Close()

	// Must not panic or block.
	n.PostingScraped("linkedin_1", "https://www.linkedin.com/jobs/view/1")
	n.PostingFailed("https://www.linkedin.com/jobs/view/2", nil)
}

func TestNotifier_RetriesFailedDelivery(t *testing.T) {
	old := retryDelays
	retryDelays = []time.Duration{0, 5 * time.Millisecond}
	defer func() { retryDelays = old }()

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Timeout: 2 * time.Second})
	defer n.Close()

	n.PostingScraped("linkedin_5", "https://www.linkedin.com/jobs/view/5")

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := calls >= 2
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a retry after the failed delivery, calls = %d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
