package metrics

// Phase is a single timed phase of the page load
type Phase struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

func newPhase(start, end float64) Phase {
	return Phase{Start: start, End: end, Duration: end - start}
}

// NetworkPhases groups the connection and request phases
type NetworkPhases struct {
	DNSLookup    Phase `json:"dnsLookup"`
	TCPConnect   Phase `json:"tcpConnect"`
	SSLHandshake Phase `json:"sslHandshake"`
	Request      Phase `json:"request"`
}

// DOMPhases groups the document processing phases
type DOMPhases struct {
	Parse         Phase `json:"parse"`
	ContentLoaded Phase `json:"contentLoaded"`
	Complete      Phase `json:"complete"`
}

// DetailedMetrics is the nested phase breakdown of a page load
type DetailedMetrics struct {
	Network NetworkPhases `json:"network"`
	DOM     DOMPhases     `json:"dom"`
	Load    Phase         `json:"load"`
}

// ComputeDetailedMetrics derives the per-phase breakdown of a page load
func ComputeDetailedMetrics(nav *NavigationTiming) (DetailedMetrics, error) {
	if nav == nil {
		return DetailedMetrics{}, ErrUnavailable
	}

	return DetailedMetrics{
		Network: NetworkPhases{
			DNSLookup:  newPhase(nav.DomainLookupStart, nav.DomainLookupEnd),
			TCPConnect: newPhase(nav.ConnectStart, nav.ConnectEnd),
			SSLHandshake: Phase{
				Start:    nav.SecureConnectionStart,
				End:      nav.ConnectEnd,
				Duration: sslHandshake(nav),
			},
			Request: newPhase(nav.RequestStart, nav.ResponseEnd),
		},
		DOM: DOMPhases{
			Parse:         newPhase(nav.DomLoading, nav.DomInteractive),
			ContentLoaded: newPhase(nav.DomContentLoadedEventStart, nav.DomContentLoadedEventEnd),
			Complete:      newPhase(nav.DomComplete, nav.LoadEventStart),
		},
		Load: newPhase(nav.LoadEventStart, nav.LoadEventEnd),
	}, nil
}

// Phases returns the leaf phases in load order, keyed by a dotted name
func (d DetailedMetrics) Phases() []NamedPhase {
	return []NamedPhase{
		{"network.dnsLookup", d.Network.DNSLookup},
		{"network.tcpConnect", d.Network.TCPConnect},
		{"network.sslHandshake", d.Network.SSLHandshake},
		{"network.request", d.Network.Request},
		{"dom.parse", d.DOM.Parse},
		{"dom.contentLoaded", d.DOM.ContentLoaded},
		{"dom.complete", d.DOM.Complete},
		{"load", d.Load},
	}
}

// NamedPhase pairs a phase with its dotted name
type NamedPhase struct {
	Name  string
	Phase Phase
}
