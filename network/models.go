package network

import (
	"time"

	"perfview/metrics"
)

// Sample is everything measured during one page load
type Sample struct {
	URL         string
	Navigation  *metrics.NavigationTiming
	Resources   []metrics.ResourceTiming
	Environment metrics.Environment

	// Redirects lists the URLs that answered with a redirect before URL
	Redirects  []string
	Connection ConnectionInfo
}

// ConnectionInfo describes the connection used for the document request
type ConnectionInfo struct {
	Reused     bool
	LocalAddr  string
	RemoteAddr string

	TLSVersion     string
	TLSCipherSuite string
	TLSResumption  bool

	Protocol    string
	HTTPVersion string
}

// phaseTimes holds the instants reported by httptrace for one request.
// Zero values mean the phase did not happen, e.g. on a reused connection.
type phaseTimes struct {
	DNSStart     time.Time
	DNSDone      time.Time
	ConnectStart time.Time
	ConnectDone  time.Time
	TLSStart     time.Time
	TLSDone      time.Time
	GotConn      time.Time
	FirstByte    time.Time

	Connection ConnectionInfo
}

// clock converts wall instants into milliseconds since the navigation origin
type clock struct {
	origin time.Time
}

func (c clock) ms(t time.Time) float64 {
	return float64(t.Sub(c.origin)) / float64(time.Millisecond)
}

// firstSet returns the first non-zero instant
func firstSet(times ...time.Time) time.Time {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// requestPhases resolves the network instants the way browsers report them:
// skipped phases collapse onto the end of the previous one and connectEnd
// includes the TLS handshake.
type requestPhases struct {
	fetchStart, dnsStart, dnsEnd, connectStart, connectEnd, secureStart time.Time
	requestStart, responseStart, responseEnd                            time.Time
}

func resolvePhases(fetchStart time.Time, p *phaseTimes, responseEnd time.Time) requestPhases {
	r := requestPhases{fetchStart: fetchStart, responseEnd: responseEnd}
	r.dnsStart = firstSet(p.DNSStart, fetchStart)
	r.dnsEnd = firstSet(p.DNSDone, r.dnsStart)
	r.connectStart = firstSet(p.ConnectStart, r.dnsEnd)
	r.connectEnd = latest(firstSet(p.ConnectDone, r.connectStart), p.TLSDone)
	r.secureStart = p.TLSStart
	r.requestStart = firstSet(p.GotConn, r.connectEnd)
	r.responseStart = firstSet(p.FirstByte, responseEnd)
	return r
}

func (c clock) msOrZero(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return c.ms(t)
}
