// Package report defines the progress events a generation run emits and the
// newline-delimited JSON stream that carries them.
package report

// Step names a pipeline stage.
type Step string

// Pipeline steps in emission order.
const (
	StepCloning    Step = "cloning"
	StepReadme     Step = "readme"
	StepTree       Step = "tree"
	StepRanking    Step = "ranking"
	StepAnalyzing  Step = "analyzing"
	StepGenerating Step = "generating"
)

// Final statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Event is one progress report. Step events carry Step and Message; the
// analyzing step adds File, Current and Total. The final event carries Status
// and either Analyzed and Body or Error.
type Event struct {
	Step     Step     `json:"step,omitempty"`
	Message  string   `json:"message,omitempty"`
	File     string   `json:"file,omitempty"`
	Current  int      `json:"current,omitempty"`
	Total    int      `json:"total,omitempty"`
	Status   string   `json:"status,omitempty"`
	Analyzed []string `json:"analyzed,omitempty"`
	Body     string   `json:"body,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// IsFinal reports whether e ends a run.
func (e Event) IsFinal() bool {
	return e.Status == StatusSuccess || e.Status == StatusError
}

// StepEvent builds a step event.
func StepEvent(step Step, message string) Event {
	return Event{Step: step, Message: message}
}

// FileEvent builds an analyzing event for one file.
func FileEvent(file string, current, total int) Event {
	return Event{Step: StepAnalyzing, File: file, Current: current, Total: total}
}

// Success builds the final event of a successful run.
func Success(analyzed []string, body string) Event {
	if analyzed == nil {
		analyzed = []string{}
	}
	return Event{Status: StatusSuccess, Analyzed: analyzed, Body: body}
}

// Failure builds the final event of a failed run.
func Failure(err error) Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Event{Status: StatusError, Error: msg}
}

// Progress maps an event to a completion fraction in [0, 1], or -1 when the
// event says nothing about progress.
func (e Event) Progress() float64 {
	switch {
	case e.Status == StatusSuccess:
		return 1
	case e.Status == StatusError:
		return -1
	}

	switch e.Step {
	case StepCloning:
		return 0.05
	case StepReadme:
		return 0.20
	case StepTree:
		return 0.35
	case StepRanking:
		return 0.5
	case StepAnalyzing:
		if e.Total > 0 {
			return 0.5 + float64(e.Current)/float64(e.Total)*0.35
		}
		return 0.5
	case StepGenerating:
		return 0.95
	}
	return -1
}
