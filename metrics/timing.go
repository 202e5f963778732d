package metrics

// NavigationTiming holds the instants of a single page load, in milliseconds
// relative to the start of the navigation. A zero SecureConnectionStart means
// no TLS handshake took place.
type NavigationTiming struct {
	FetchStart float64 `json:"fetchStart"`

	// Network phases
	DomainLookupStart     float64 `json:"domainLookupStart"`
	DomainLookupEnd       float64 `json:"domainLookupEnd"`
	ConnectStart          float64 `json:"connectStart"`
	ConnectEnd            float64 `json:"connectEnd"`
	SecureConnectionStart float64 `json:"secureConnectionStart"`
	RequestStart          float64 `json:"requestStart"`
	ResponseStart         float64 `json:"responseStart"`
	ResponseEnd           float64 `json:"responseEnd"`

	// DOM phases
	DomLoading                 float64 `json:"domLoading"`
	DomInteractive             float64 `json:"domInteractive"`
	DomContentLoadedEventStart float64 `json:"domContentLoadedEventStart"`
	DomContentLoadedEventEnd   float64 `json:"domContentLoadedEventEnd"`
	DomComplete                float64 `json:"domComplete"`

	// Load event
	LoadEventStart float64 `json:"loadEventStart"`
	LoadEventEnd   float64 `json:"loadEventEnd"`
}

// ResourceTiming describes one sub-resource fetched during the page load
type ResourceTiming struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`

	StartTime         float64 `json:"startTime"`
	FetchStart        float64 `json:"fetchStart"`
	DomainLookupStart float64 `json:"domainLookupStart"`
	DomainLookupEnd   float64 `json:"domainLookupEnd"`
	ConnectStart      float64 `json:"connectStart"`
	ConnectEnd        float64 `json:"connectEnd"`
	RequestStart      float64 `json:"requestStart"`
	ResponseStart     float64 `json:"responseStart"`
	ResponseEnd       float64 `json:"responseEnd"`
}

// Environment identifies where a report was captured. It is supplied by the
// timing provider, the analyzer never looks it up itself.
type Environment struct {
	UserAgent string
}
