package harness

import (
	"fmt"
	"io"
)

// ScenarioReport folds the outcomes of one scenario.
type ScenarioReport struct {
	Label    string    `json:"label"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Outcomes []Outcome `json:"outcomes"`
}

// RunReport folds every scenario of a run.
type RunReport struct {
	RunID     string           `json:"run_id,omitempty"`
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (s *ScenarioReport) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case !o.Passed:
		s.Failed++
	case o.Skipped:
		s.Skipped++
		s.Passed++
	default:
		s.Passed++
	}
}

func (r *RunReport) add(s ScenarioReport) {
	r.Scenarios = append(r.Scenarios, s)
	r.Passed += s.Passed
	r.Failed += s.Failed
	r.Total += len(s.Outcomes)
}

// Aggregate folds outcomes into a report, grouping consecutive outcomes by
// scenario label.
func Aggregate(outcomes []Outcome) *RunReport {
	r := &RunReport{Scenarios: []ScenarioReport{}}
	var cur *ScenarioReport
	for _, o := range outcomes {
		if cur == nil || cur.Label != o.Label {
			if cur != nil {
				r.add(*cur)
			}
			cur = &ScenarioReport{Label: o.Label}
		}
		cur.add(o)
	}
	if cur != nil {
		r.add(*cur)
	}
	return r
}

// Reporter receives progress as the Runner goes.
type Reporter interface {
	ScenarioStart(label string)
	SubCase(o Outcome)
	ScenarioEnd(s ScenarioReport)
	Summary(r *RunReport)
}

// TextReporter prints human readable progress lines.
type TextReporter struct {
	W io.Writer
}

// NewTextReporter returns a TextReporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{W: w}
}

func (t *TextReporter) ScenarioStart(label string) {
	fmt.Fprintf(t.W, "Running %q\n", label)
}

func (t *TextReporter) SubCase(o Outcome) {
	switch {
	case !o.Passed:
		fmt.Fprintf(t.W, "  %s: FAILED\n", o.SubCase)
	case o.Skipped:
		fmt.Fprintf(t.W, "  %s: passed (skipped, 0ms)\n", o.SubCase)
	default:
		fmt.Fprintf(t.W, "  %s: passed (%dms)\n", o.SubCase, o.Elapsed.Milliseconds())
	}
}

func (t *TextReporter) ScenarioEnd(ScenarioReport) {}

func (t *TextReporter) Summary(r *RunReport) {
	fmt.Fprintf(t.W, "Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) ScenarioStart(string) {}
func (NopReporter) SubCase(Outcome) {}
func (NopReporter) ScenarioEnd(ScenarioReport) {}
func (NopReporter) Summary(*RunReport) {}
