package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/html"

	"github.com/rishabhxpandey/lnkd-apb/cleaner"
	"github.com/rishabhxpandey/lnkd-apb/models"
)

// guestTimeout bounds the whole guest fetch, parse included.
const guestTimeout = 15 * time.Second

// guestUA is the user agent for guest fetches. Separate from the browser
// profile so the two paths do not share an obvious fingerprint.
const guestUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused per connection.
var chromeH1Spec tls2.ClientHelloSpec

func init() {
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		// Should never happen with a valid utls version; HelloCustom with
		// a zero spec fails loudly at dial time if it does.
		return
	}
	// Strip h2 from the ALPN extension so the server never negotiates
	// HTTP/2, which Go's http.Transport cannot speak over a utls conn.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// guestFetcher recovers postings through the public guest rendition of a
// posting page: plain HTTP with a Chrome TLS fingerprint, no JS. It only
// works while the guest endpoint serves full markup, so it is used
// strictly as a degrade path after the browser attempts are exhausted.
type guestFetcher struct {
	defaultProxy string
	cleaner      *cleaner.Cleaner
}

func newGuestFetcher(defaultProxy string, cl *cleaner.Cleaner) *guestFetcher {
	return &guestFetcher{defaultProxy: defaultProxy, cleaner: cl}
}

// fetch retrieves and parses the guest rendition of the posting. The
// returned posting is flagged Degraded.
func (g *guestFetcher) fetch(ctx context.Context, target *Target) (*models.Posting, error) {
	fctx, cancel := context.WithTimeout(ctx, guestTimeout)
	defer cancel()

	body, finalURL, err := g.get(fctx, target.URL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "guest fetch failed", err)
	}
	if looksLikeAuthwall(finalURL, body) {
		return nil, models.NewScrapeError(models.ErrCodeContent,
			"guest endpoint served an auth wall", nil)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeContent, "guest page unparseable", err)
	}

	raw := g.parse(doc, body, target.URL)
	if err := raw.validate(); err != nil {
		return nil, err
	}

	posting := buildPosting(target, raw, g.cleaner)
	posting.Degraded = true
	return posting, nil
}

// jobPostingLD is the schema.org JobPosting subset embedded in the guest
// page. Its description field is an HTML string.
type jobPostingLD struct {
	Type               string `json:"@type"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	DatePosted         string `json:"datePosted"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
}

// parse extracts fields from the guest page. Structured JSON-LD data is
// preferred; guest-layout selectors fill anything it missed, and
// readability is the last resort for the description.
func (g *guestFetcher) parse(doc *goquery.Document, body []byte, pageURL string) *RawFields {
	f := &RawFields{}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld jobPostingLD
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil {
			return true
		}
		if ld.Type != "JobPosting" {
			return true
		}
		f.Title = Normalize(ld.Title)
		f.Org = Normalize(ld.HiringOrganization.Name)
		f.Posted = Normalize(ld.DatePosted)
		if ld.Description != "" {
			f.BodyHTML = ld.Description
			if frag, err := goquery.NewDocumentFromReader(strings.NewReader(ld.Description)); err == nil {
				f.Body = Normalize(frag.Text())
			}
		}
		return false
	})

	if f.Title == "" {
		f.Title = Normalize(doc.Find(".top-card-layout__title").First().Text())
	}
	if f.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			f.Title = Normalize(strings.TrimSuffix(strings.TrimSpace(og), "| LinkedIn"))
		}
	}
	if f.Org == "" {
		f.Org = Normalize(doc.Find(".topcard__org-name-link").First().Text())
	}
	if f.Body == "" {
		frag, ok := cleaner.Slice(string(body), ".description__text .show-more-less-html__markup")
		if !ok {
			frag, ok = cleaner.Slice(string(body), ".description__text")
		}
		if ok {
			f.BodyHTML = frag
			f.Body = Normalize(cleaner.FragmentText(frag))
		}
	}
	if f.Body == "" {
		if text, article, err := g.cleaner.Readable(string(body), pageURL); err == nil {
			f.Body = Normalize(text)
			f.BodyHTML = article
		}
	}
	if f.Posted == "" {
		f.Posted = Normalize(doc.Find(".posted-time-ago__text").First().Text())
	}
	return f
}

// get retrieves the URL via plain HTTP with the pinned Chrome hello.
// It returns the body, the final URL after redirects, and any error.
func (g *guestFetcher) get(ctx context.Context, targetURL string) ([]byte, string, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, g.defaultProxy)
		},
		ForceAttemptHTTP2: false,
	}
	if g.defaultProxy != "" {
		proxyURL, err := url.Parse(g.defaultProxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("guest: build request: %w", err)
	}
	req.Header.Set("User-Agent", guestUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("guest: request failed: %w", err)
	}
	defer resp.Body.Close()

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return nil, finalURL, fmt.Errorf("guest: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // 10 MB cap
	if err != nil {
		return nil, finalURL, fmt.Errorf("guest: read body: %w", err)
	}
	return body, finalURL, nil
}

// dialTLSChrome establishes a TLS connection with the pinned Chrome
// fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{Timeout: 10 * time.Second}

	if proxy != "" {
		proxyURL, parseErr := url.Parse(proxy)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksConn, socksErr := dialer.DialContext(ctx, "tcp", proxyURL.Host)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dial: %w", socksErr)
			}
			rawConn = socksConn
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("guest: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// looksLikeAuthwall reports whether the guest endpoint bounced the fetch
// to a login surface instead of serving the posting.
func looksLikeAuthwall(finalURL string, body []byte) bool {
	lower := strings.ToLower(finalURL)
	for _, marker := range []string{"/authwall", "/uas/login", "/checkpoint/", "session_redirect"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	// A real guest posting page carries substantial visible text; the
	// auth shell carries almost none.
	return len(visibleText(body)) < 200
}

// visibleText extracts the visible text from within <body>, stripping all
// tags and script/style content. Used for the auth-shell heuristic only.
func visibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
