package network

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alitto/pond"
	"go.uber.org/zap"

	"perfview/metrics"
)

const maxRedirects = 10

// AddDefaultProtocol adds https:// prefix if protocol is missing
func AddDefaultProtocol(s string) string {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "https://" + s
	}
	return s
}

// CreateHTTPClient creates an HTTP client that leaves redirects to the caller
func CreateHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: 100,
			MaxConnsPerHost:     100,
			IdleConnTimeout:     30 * time.Second,
		},
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Collector measures a page load over plain HTTP. The document request is
// traced phase by phase, the HTML is parsed with goquery and the referenced
// sub-resources are fetched the way a browser would: scripts that block
// DOMContentLoaded first, everything else before the load event.
type Collector struct {
	client      *http.Client
	logger      *zap.Logger
	userAgent   string
	concurrency int
}

// NewCollector creates a Collector
func NewCollector(client *http.Client, logger *zap.Logger, userAgent string, concurrency int) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		client:      client,
		logger:      logger,
		userAgent:   userAgent,
		concurrency: concurrency,
	}
}

// Collect loads urlArg and returns its navigation and resource timings
func (c *Collector) Collect(ctx context.Context, urlArg string) (*Sample, error) {
	sample := &Sample{
		Environment: metrics.Environment{UserAgent: c.userAgent},
	}

	doc, err := c.fetchDocument(ctx, urlArg, sample, make(map[string]bool), 0)
	if err != nil {
		return nil, err
	}

	if err := c.loadSubresources(ctx, doc, sample); err != nil {
		return nil, err
	}

	return sample, nil
}

// document is the parsed main document and the instants of its request
type document struct {
	clock clock
	base  *url.URL
	html  *goquery.Document
	nav   *metrics.NavigationTiming
}

func (c *Collector) fetchDocument(ctx context.Context, urlArg string, sample *Sample, visited map[string]bool, depth int) (*document, error) {
	// Check for redirect loops
	if visited[urlArg] {
		return nil, fmt.Errorf("redirect loop detected at URL: %s", urlArg)
	}

	if depth > maxRedirects {
		return nil, fmt.Errorf("max redirect depth reached (%d)", maxRedirects)
	}

	visited[urlArg] = true

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlArg, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var times phaseTimes
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), createHTTPTrace(&times)))

	fetchStart := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body := new(bytes.Buffer)
	if _, err := io.Copy(body, resp.Body); err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	responseEnd := time.Now()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location, err := resp.Location()
		if err != nil {
			return nil, fmt.Errorf("error reading redirect location: %w", err)
		}
		sample.Redirects = append(sample.Redirects, urlArg)
		c.logger.Debug("Following redirect", zap.String("from", urlArg), zap.String("to", location.String()))
		return c.fetchDocument(ctx, location.String(), sample, visited, depth+1)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status for %s: %s", urlArg, resp.Status)
	}

	times.Connection.HTTPVersion = resp.Proto
	times.Connection.Protocol = protocolName(resp)

	sample.URL = urlArg
	sample.Connection = times.Connection

	clk := clock{origin: fetchStart}
	phases := resolvePhases(fetchStart, &times, responseEnd)

	html, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	parsedEnd := time.Now()

	base, err := url.Parse(resp.Request.URL.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing base URL: %w", err)
	}

	nav := &metrics.NavigationTiming{
		FetchStart:            clk.ms(phases.fetchStart),
		DomainLookupStart:     clk.ms(phases.dnsStart),
		DomainLookupEnd:       clk.ms(phases.dnsEnd),
		ConnectStart:          clk.ms(phases.connectStart),
		ConnectEnd:            clk.ms(phases.connectEnd),
		SecureConnectionStart: clk.msOrZero(phases.secureStart),
		RequestStart:          clk.ms(phases.requestStart),
		ResponseStart:         clk.ms(phases.responseStart),
		ResponseEnd:           clk.ms(phases.responseEnd),
		DomLoading:            clk.ms(responseEnd),
		DomInteractive:        clk.ms(parsedEnd),
	}

	return &document{clock: clk, base: base, html: html, nav: nav}, nil
}

// loadSubresources fetches blocking scripts, fires DOMContentLoaded, then
// fetches the remaining resources and fires the load event
func (c *Collector) loadSubresources(ctx context.Context, doc *document, sample *Sample) error {
	blocking, deferred := discoverResources(doc.html, doc.base)

	first := c.fetchAll(ctx, doc.clock, blocking)
	dclStart := time.Now()
	doc.nav.DomContentLoadedEventStart = doc.clock.ms(dclStart)
	doc.nav.DomContentLoadedEventEnd = doc.clock.ms(time.Now())

	second := c.fetchAll(ctx, doc.clock, deferred)
	complete := time.Now()
	doc.nav.DomComplete = doc.clock.ms(complete)
	doc.nav.LoadEventStart = doc.nav.DomComplete
	doc.nav.LoadEventEnd = doc.clock.ms(time.Now())

	sample.Navigation = doc.nav
	sample.Resources = append(first, second...)

	return ctx.Err()
}

// resourceRef is a sub-resource referenced by the document
type resourceRef struct {
	URL       string
	Initiator string
}

// discoverResources finds the resources a browser would load, in document
// order. Scripts without async block DOMContentLoaded.
func discoverResources(doc *goquery.Document, base *url.URL) (blocking, rest []resourceRef) {
	seen := make(map[string]bool)

	doc.Find("link[href], script[src], img[src]").Each(func(_ int, s *goquery.Selection) {
		link, exists := s.Attr("href")
		if !exists {
			link, exists = s.Attr("src")
		}
		if !exists || strings.TrimSpace(link) == "" {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(link))
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if full.Scheme != "http" && full.Scheme != "https" {
			return
		}
		full.Fragment = ""
		if seen[full.String()] {
			return
		}
		seen[full.String()] = true

		r := resourceRef{URL: full.String(), Initiator: goquery.NodeName(s)}
		if r.Initiator == "script" {
			if _, async := s.Attr("async"); !async {
				blocking = append(blocking, r)
				return
			}
		}
		rest = append(rest, r)
	})

	return blocking, rest
}

// fetchAll fetches refs on a worker pool and returns the timings of the
// successful fetches in document order
func (c *Collector) fetchAll(ctx context.Context, clk clock, refs []resourceRef) []metrics.ResourceTiming {
	if len(refs) == 0 {
		return nil
	}

	results := make([]*metrics.ResourceTiming, len(refs))
	pool := pond.New(c.concurrency, len(refs))

	for i, ref := range refs {
		i, ref := i, ref
		pool.Submit(func() {
			timing, err := c.fetchResource(ctx, clk, ref)
			if err != nil {
				c.logger.Warn("Could not fetch resource", zap.String("url", ref.URL), zap.Error(err))
				return
			}
			results[i] = timing
		})
	}
	pool.StopAndWait()

	timings := make([]metrics.ResourceTiming, 0, len(refs))
	for _, r := range results {
		if r != nil {
			timings = append(timings, *r)
		}
	}
	return timings
}

// fetchResource fetches a single resource and records its phase timings
func (c *Collector) fetchResource(ctx context.Context, clk clock, ref resourceRef) (*metrics.ResourceTiming, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request for resource %s: %w", ref.URL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var times phaseTimes
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), createHTTPTrace(&times)))

	fetchStart := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching resource %s: %w", ref.URL, err)
	}
	defer resp.Body.Close()

	size, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading resource body %s: %w", ref.URL, err)
	}
	responseEnd := time.Now()

	p := resolvePhases(fetchStart, &times, responseEnd)
	return &metrics.ResourceTiming{
		Name:              ref.URL,
		Type:              ref.Initiator,
		Duration:          clk.ms(responseEnd) - clk.ms(fetchStart),
		Size:              size,
		StartTime:         clk.ms(fetchStart),
		FetchStart:        clk.ms(p.fetchStart),
		DomainLookupStart: clk.ms(p.dnsStart),
		DomainLookupEnd:   clk.ms(p.dnsEnd),
		ConnectStart:      clk.ms(p.connectStart),
		ConnectEnd:        clk.ms(p.connectEnd),
		RequestStart:      clk.ms(p.requestStart),
		ResponseStart:     clk.ms(p.responseStart),
		ResponseEnd:       clk.ms(p.responseEnd),
	}, nil
}

func protocolName(resp *http.Response) string {
	switch {
	case resp.ProtoMajor == 2:
		return "HTTP/2"
	case resp.ProtoMajor == 3:
		return "HTTP/3"
	case resp.TLS != nil:
		return "HTTPS"
	default:
		return "HTTP"
	}
}

// createHTTPTrace creates a trace to collect timing information
func createHTTPTrace(times *phaseTimes) *httptrace.ClientTrace {
	var mu sync.Mutex

	return &httptrace.ClientTrace{
		// DNS events
		DNSStart: func(_ httptrace.DNSStartInfo) {
			mu.Lock()
			times.DNSStart = time.Now()
			mu.Unlock()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			mu.Lock()
			times.DNSDone = time.Now()
			mu.Unlock()
		},

		// Connection events
		ConnectStart: func(_, _ string) {
			mu.Lock()
			if times.ConnectStart.IsZero() {
				times.ConnectStart = time.Now()
			}
			mu.Unlock()
		},
		ConnectDone: func(_, _ string, err error) {
			mu.Lock()
			if err == nil {
				times.ConnectDone = time.Now()
			}
			mu.Unlock()
		},

		// TLS events
		TLSHandshakeStart: func() {
			mu.Lock()
			times.TLSStart = time.Now()
			mu.Unlock()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			mu.Lock()
			times.TLSDone = time.Now()
			if err == nil {
				times.Connection.TLSVersion = tlsVersionName(state.Version)
				times.Connection.TLSCipherSuite = tls.CipherSuiteName(state.CipherSuite)
				times.Connection.TLSResumption = state.DidResume
			}
			mu.Unlock()
		},

		GotConn: func(info httptrace.GotConnInfo) {
			mu.Lock()
			times.GotConn = time.Now()
			times.Connection.Reused = info.Reused
			if info.Conn != nil {
				times.Connection.LocalAddr = info.Conn.LocalAddr().String()
				times.Connection.RemoteAddr = info.Conn.RemoteAddr().String()
			}
			mu.Unlock()
		},

		GotFirstResponseByte: func() {
			mu.Lock()
			times.FirstByte = time.Now()
			mu.Unlock()
		},
	}
}

// tlsVersionName converts TLS version code to string
func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}
