package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/guptarohit/asciigraph"
	"github.com/logrusorgru/aurora"

	"perfview/metrics"
	"perfview/network"
)

// Printer renders samples, reports and resource analyses as coloured text
type Printer struct {
	w  io.Writer
	au aurora.Aurora
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer, colors bool) *Printer {
	return &Printer{w: w, au: aurora.NewAurora(colors)}
}

// PrintVersion prints the version information
func (p *Printer) PrintVersion(version string) {
	fmt.Fprintln(p.w, p.au.Sprintf(p.au.Green("perfview v%s"), p.au.Yellow(version)))
}

// PrintSample prints where and how the page was loaded
func (p *Printer) PrintSample(sample *network.Sample) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.au.Magenta("URL:"), p.au.Cyan(sample.URL))

	for i, redirect := range sample.Redirects {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen(fmt.Sprintf("Redirect #%d", i+1)), p.au.Blue(redirect))
	}

	conn := sample.Connection
	if conn.HTTPVersion != "" {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.Yellow("HTTP version"), p.au.Blue(conn.HTTPVersion))
	}
	if conn.Protocol != "" {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.Yellow("Protocol"), p.au.Blue(conn.Protocol))
	}
	if conn.RemoteAddr != "" {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("Remote address"), p.au.Blue(conn.RemoteAddr))
	}
	if conn.TLSVersion != "" {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("TLS version"), p.au.Blue(conn.TLSVersion))
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("TLS cipher"), p.au.Blue(conn.TLSCipherSuite))
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("TLS resumption"), p.au.Blue(fmt.Sprintf("%t", conn.TLSResumption)))
	}
	if sample.Environment.UserAgent != "" {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("User agent"), p.au.Blue(sample.Environment.UserAgent))
	}
}

// PrintReport prints basic metrics, their grades and the phase breakdown.
// statsOnly skips the phase table and graph.
func (p *Printer) PrintReport(report metrics.Report, statsOnly bool) {
	fmt.Fprintln(p.w)
	if report.Failed() {
		fmt.Fprintln(p.w, p.au.Red("Error:"), p.au.Red(report.Error))
		return
	}

	fmt.Fprintln(p.w, p.au.Green("Basic metrics"))
	for _, m := range metrics.FormatMetrics(*report.BasicMetrics) {
		fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen(m.Name), p.au.Blue(m.Value))
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.au.Green("Evaluation"))
	for _, g := range report.Evaluation.Grades() {
		fmt.Fprintf(p.w, "%20s %s %s\n", p.au.BrightGreen(g.Name), p.level(g.Grade.Level), g.Grade.Message)
	}

	if !statsOnly {
		p.printPhases(*report.DetailedMetrics)
	}

	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%20s %s\n", p.au.BrightGreen("Captured"), p.au.Blue(report.Timestamp))
}

func (p *Printer) level(l metrics.Level) aurora.Value {
	label := fmt.Sprintf("%-9s", l)
	switch l {
	case metrics.LevelExcellent:
		return p.au.BrightGreen(label)
	case metrics.LevelGood:
		return p.au.Green(label)
	case metrics.LevelFair:
		return p.au.Yellow(label)
	default:
		return p.au.Red(label)
	}
}

// printPhases prints every phase and a graph of their durations
func (p *Printer) printPhases(detailed metrics.DetailedMetrics) {
	phases := detailed.Phases()

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.au.Green("Phases"))

	durations := make([]float64, 0, len(phases))
	for _, ph := range phases {
		fmt.Fprintf(p.w, "%22s %10s → %-10s %s\n",
			p.au.BrightGreen(ph.Name),
			FormatMilliseconds(ph.Phase.Start),
			FormatMilliseconds(ph.Phase.End),
			p.au.Blue(FormatMilliseconds(ph.Phase.Duration)),
		)
		durations = append(durations, ph.Phase.Duration)
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, asciigraph.Plot(durations, asciigraph.Height(8), asciigraph.Caption("phase durations (ms)")))
}

// PrintResources prints resources grouped by type with their sizes, then the
// slowest and the largest one
func (p *Printer) PrintResources(analysis metrics.ResourceAnalysis) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s %v\n", p.au.Green("Resources:"), p.au.Blue(analysis.Total))

	var totalSize int64
	for _, group := range analysis.ByType {
		fmt.Fprintln(p.w, p.au.Green("Type:"), p.au.Blue(typeLabel(group.Type)))

		var typeTotalSize int64
		for _, r := range group.Resources {
			fmt.Fprintf(p.w, "  %s %s %s\n", p.au.Green(r.Name), p.au.Blue(FormatSize(r.Size)), FormatMilliseconds(r.Duration))
			typeTotalSize += r.Size
		}
		totalSize += typeTotalSize

		fmt.Fprintf(p.w, "%s %s\n", p.au.Green("Total size for this type:"), p.au.Blue(FormatSize(typeTotalSize)))
		fmt.Fprintln(p.w)
	}

	fmt.Fprintf(p.w, "%s %s\n", p.au.Green("Total size for all resources:"), p.au.Blue(FormatSize(totalSize)))

	if analysis.Slowest != nil {
		fmt.Fprintf(p.w, "%s %s (%s)\n", p.au.Yellow("Slowest:"), analysis.Slowest.Name, FormatMilliseconds(analysis.Slowest.Duration))
	}
	if analysis.Largest != nil {
		fmt.Fprintf(p.w, "%s %s (%s)\n", p.au.Yellow("Largest:"), analysis.Largest.Name, FormatSize(analysis.Largest.Size))
	}
}

func typeLabel(t string) string {
	if strings.TrimSpace(t) == "" {
		return "other"
	}
	return t
}

// Document is the JSON output of one run
type Document struct {
	URL       string                   `json:"url"`
	Redirects []string                 `json:"redirects,omitempty"`
	Report    metrics.Report           `json:"report"`
	Resources metrics.ResourceAnalysis `json:"resources"`
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// FormatMilliseconds formats a duration given in milliseconds with 2 decimal places
func FormatMilliseconds(ms float64) string {
	return fmt.Sprintf("%.2fms", ms)
}

// FormatSize formats a byte size in a human-readable way
func FormatSize(size int64) string {
	if size < 0 {
		return fmt.Sprintf("%d B", size)
	}
	return humanize.IBytes(uint64(size))
}
