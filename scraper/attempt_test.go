package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/models"
)

// fakeContext is a scripted browsingContext. One fake serves one attempt.
type fakeContext struct {
	navErr    error
	fieldsErr error
	raw       *RawFields
	panicIn   string // step that panics: "navigate" or "fields"

	released int
}

func (f *fakeContext) navigate(_ context.Context, _ string) (int, error) {
	if f.panicIn == "navigate" {
		panic("scripted panic")
	}
	if f.navErr != nil {
		return 0, f.navErr
	}
	return 200, nil
}

func (f *fakeContext) settle(_ context.Context) {}

func (f *fakeContext) fields(_ context.Context) (*RawFields, error) {
	if f.panicIn == "fields" {
		panic("scripted panic")
	}
	if f.fieldsErr != nil {
		return nil, f.fieldsErr
	}
	return f.raw, nil
}

func (f *fakeContext) release() { f.released++ }

// seamRecorder hands out scripted contexts and records session resets and
// backoff sleeps.
type seamRecorder struct {
	contexts []*fakeContext
	idx      int
	resets   int
	sleeps   []time.Duration
}

func (r *seamRecorder) next(_ context.Context) (browsingContext, error) {
	if r.idx >= len(r.contexts) {
		return nil, fmt.Errorf("no scripted context for attempt %d", r.idx+1)
	}
	bc := r.contexts[r.idx]
	r.idx++
	return bc, nil
}

// newTestScraper builds a Scraper with inert pacing and gate, serving the
// scripted contexts in order.
func newTestScraper(t *testing.T, contexts ...*fakeContext) (*Scraper, *seamRecorder) {
	t.Helper()
	cfg := config.ScraperConfig{
		MaxRetries:  2,
		BackoffBase: 10 * time.Millisecond,
	}
	s := New(config.BrowserConfig{}, cfg, config.GateConfig{})
	rec := &seamRecorder{contexts: contexts}
	s.newContext = rec.next
	s.resetPool = func() { rec.resets++ }
	s.sleep = func(_ context.Context, d time.Duration) { rec.sleeps = append(rec.sleeps, d) }
	return s, rec
}

func validRaw() *RawFields {
	return &RawFields{
		Title:  "Senior Backend Engineer",
		Org:    "Acme Corp",
		Body:   strings.Repeat("Design and run the posting ingestion pipeline. ", 3),
		Posted: "3 days ago",
	}
}

func testTarget() *Target {
	return &Target{URL: "https://www.linkedin.com/jobs/view/4044437386", ID: "4044437386"}
}

func TestRunAttempt(t *testing.T) {
	fc := &fakeContext{raw: validRaw()}
	s, _ := newTestScraper(t, fc)

	posting, err := s.runAttempt(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("runAttempt returned error: %v", err)
	}

	if posting.ID != "4044437386" {
		t.Errorf("ID = %q, want 4044437386", posting.ID)
	}
	if posting.Key() != "linkedin_4044437386" {
		t.Errorf("Key = %q, want linkedin_4044437386", posting.Key())
	}
	if posting.Title != "Senior Backend Engineer" {
		t.Errorf("Title = %q, want the extracted title", posting.Title)
	}
	if posting.Organization != "Acme Corp" {
		t.Errorf("Organization = %q, want Acme Corp", posting.Organization)
	}
	if posting.SourceTag != models.SourceLinkedIn {
		t.Errorf("SourceTag = %q, want %q", posting.SourceTag, models.SourceLinkedIn)
	}
	if posting.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
	if posting.Fingerprint == 0 {
		t.Error("Fingerprint not computed")
	}
	if fc.released != 1 {
		t.Errorf("context released %d times, want 1", fc.released)
	}
}

func TestRunAttempt_ReleasesOnNavigationError(t *testing.T) {
	fc := &fakeContext{navErr: models.NewScrapeError(models.ErrCodeNavigation, "nav failed", nil)}
	s, _ := newTestScraper(t, fc)

	if _, err := s.runAttempt(context.Background(), testTarget()); err == nil {
		t.Fatal("runAttempt succeeded, want navigation error")
	}
	if fc.released != 1 {
		t.Errorf("context released %d times, want 1", fc.released)
	}
}

func TestRunAttempt_ReleasesOnValidationFailure(t *testing.T) {
	raw := validRaw()
	raw.Title = ""
	fc := &fakeContext{raw: raw}
	s, _ := newTestScraper(t, fc)

	_, err := s.runAttempt(context.Background(), testTarget())
	if err == nil {
		t.Fatal("runAttempt accepted a titleless posting")
	}
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeContent {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeContent)
	}
	if fc.released != 1 {
		t.Errorf("context released %d times, want 1", fc.released)
	}
}

func TestRunAttempt_ReleasesOnPanic(t *testing.T) {
	fc := &fakeContext{panicIn: "fields", raw: validRaw()}
	s, _ := newTestScraper(t, fc)

	posting, err := s.runAttempt(context.Background(), testTarget())
	if err == nil {
		t.Fatal("runAttempt swallowed a panic without error")
	}
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeInternal {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeInternal)
	}
	if posting != nil {
		t.Errorf("posting = %+v after panic, want nil", posting)
	}
	if fc.released != 1 {
		t.Errorf("context released %d times, want 1", fc.released)
	}
}

func TestRunAttempt_RendersMarkdown(t *testing.T) {
	raw := validRaw()
	raw.BodyHTML = `<div><p>Build the ingestion pipeline.</p><ul><li>Go</li><li>SQL</li></ul></div>`
	fc := &fakeContext{raw: raw}
	s, _ := newTestScraper(t, fc)

	posting, err := s.runAttempt(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("runAttempt returned error: %v", err)
	}
	if !strings.Contains(posting.BodyMarkdown, "- Go") {
		t.Errorf("BodyMarkdown = %q, want a rendered list item", posting.BodyMarkdown)
	}
}

func TestBuildPosting_UnknownOrganization(t *testing.T) {
	raw := validRaw()
	raw.Org = ""
	fc := &fakeContext{raw: raw}
	s, _ := newTestScraper(t, fc)

	posting, err := s.runAttempt(context.Background(), testTarget())
	if err != nil {
		t.Fatalf("runAttempt returned error: %v", err)
	}
	if posting.Organization != models.OrganizationUnknown {
		t.Errorf("Organization = %q, want %q", posting.Organization, models.OrganizationUnknown)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeTimeout},
		{"websocket drop", errors.New("websocket: close 1006"), models.ErrCodeSession},
		{"closed connection", errors.New("use of closed network connection"), models.ErrCodeSession},
		{"target closed", errors.New("rod: Target closed"), models.ErrCodeSession},
		{"page error", errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizeError(tt.err, "probe")
			if got.Code != tt.want {
				t.Errorf("categorizeError(%v) code = %s, want %s", tt.err, got.Code, tt.want)
			}
		})
	}
}

func TestIsDisconnect(t *testing.T) {
	if isDisconnect(nil) {
		t.Error("isDisconnect(nil) = true")
	}
	if !isDisconnect(errors.New("browser has been closed")) {
		t.Error("closed-browser error not treated as disconnect")
	}
	if isDisconnect(errors.New("element not found")) {
		t.Error("page-level error treated as disconnect")
	}
}
