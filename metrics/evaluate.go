package metrics

// Level is a qualitative grade of a duration
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
)

// Grade is the level assigned to a metric together with its band label
type Grade struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Evaluation grades the scored subset of the basic metrics
type Evaluation struct {
	TTFB       Grade `json:"ttfb"`
	DomReady   Grade `json:"domReady"`
	TotalLoad  Grade `json:"totalLoad"`
	DNSLookup  Grade `json:"dnsLookup"`
	TCPConnect Grade `json:"tcpConnect"`
}

// Rubric maps a duration onto four ascending bands. Bounds are exclusive
// upper bounds of the excellent, good and fair bands; anything at or above
// the last bound is poor.
type Rubric struct {
	Bounds [3]float64
	Labels [4]string
}

var levels = [4]Level{LevelExcellent, LevelGood, LevelFair, LevelPoor}

// Grade returns the first band whose upper bound exceeds v
func (r Rubric) Grade(v float64) Grade {
	for i, bound := range r.Bounds {
		if v < bound {
			return Grade{Level: levels[i], Message: r.Labels[i]}
		}
	}
	return Grade{Level: LevelPoor, Message: r.Labels[3]}
}

var (
	TTFBRubric = Rubric{
		Bounds: [3]float64{200, 600, 1000},
		Labels: [4]string{"优秀 (< 200ms)", "良好 (200-600ms)", "一般 (600-1000ms)", "较差 (> 1000ms)"},
	}
	DomReadyRubric = Rubric{
		Bounds: [3]float64{1000, 3000, 5000},
		Labels: [4]string{"优秀 (< 1s)", "良好 (1-3s)", "一般 (3-5s)", "较差 (> 5s)"},
	}
	TotalLoadRubric = Rubric{
		Bounds: [3]float64{2000, 5000, 10000},
		Labels: [4]string{"优秀 (< 2s)", "良好 (2-5s)", "一般 (5-10s)", "较差 (> 10s)"},
	}
	DNSLookupRubric = Rubric{
		Bounds: [3]float64{50, 100, 200},
		Labels: [4]string{"优秀 (< 50ms)", "良好 (50-100ms)", "一般 (100-200ms)", "较差 (> 200ms)"},
	}
	TCPConnectRubric = Rubric{
		Bounds: [3]float64{100, 300, 500},
		Labels: [4]string{"优秀 (< 100ms)", "良好 (100-300ms)", "一般 (300-500ms)", "较差 (> 500ms)"},
	}
)

// Evaluate grades ttfb, domReady, totalTime, dnsLookup and tcpConnect
func Evaluate(m BasicMetrics) Evaluation {
	return Evaluation{
		TTFB:       TTFBRubric.Grade(m.TTFB),
		DomReady:   DomReadyRubric.Grade(m.DomReady),
		TotalLoad:  TotalLoadRubric.Grade(m.TotalTime),
		DNSLookup:  DNSLookupRubric.Grade(m.DNSLookup),
		TCPConnect: TCPConnectRubric.Grade(m.TCPConnect),
	}
}

// Grades returns the graded metrics in report order
func (e Evaluation) Grades() []NamedGrade {
	return []NamedGrade{
		{"ttfb", e.TTFB},
		{"domReady", e.DomReady},
		{"totalLoad", e.TotalLoad},
		{"dnsLookup", e.DNSLookup},
		{"tcpConnect", e.TCPConnect},
	}
}

// NamedGrade pairs a grade with the metric it belongs to
type NamedGrade struct {
	Name  string
	Grade Grade
}
