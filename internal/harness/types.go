package harness

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags the expected-result computation for a sub-case.
type Kind string

const (
	KindEntries Kind = "entries"
	KindBucket  Kind = "bucket"
	KindFilter  Kind = "filter"
	KindMissing Kind = "missing"
	KindIndex   Kind = "index"
)

// SubCase names one entry of a scenario's battery.
type SubCase string

const (
	SubEntries      SubCase = "entries"
	SubBucket       SubCase = "bucket"
	SubFilter       SubCase = "filter"
	SubMissing      SubCase = "missing"
	SubMissingTwice SubCase = "missing_twice"

	SubIndexBucketRange SubCase = "index:bucket_range"
	SubIndexKeyRange    SubCase = "index:key_range"
	SubIndexBinEq       SubCase = "index:bin_eq"
	SubIndexIntEq       SubCase = "index:int_eq"
	SubIndexIntRange    SubCase = "index:int_range"
)

const indexPrefix = "index:"

// Kind returns the oracle kind for s.
func (s SubCase) Kind() Kind {
	switch s {
	case SubEntries:
		return KindEntries
	case SubBucket:
		return KindBucket
	case SubFilter:
		return KindFilter
	case SubMissing, SubMissingTwice:
		return KindMissing
	}
	if s.IsIndex() {
		return KindIndex
	}
	return ""
}

// IsIndex reports whether s is a secondary index sub-case.
func (s SubCase) IsIndex() bool { return strings.HasPrefix(string(s), indexPrefix) }

// FullBucket reports whether s scans every record of the bucket.
func (s SubCase) FullBucket() bool { return s == SubBucket || s == SubIndexBucketRange }

// Outcome is the verdict for one sub-case of one scenario.
type Outcome struct {
	Label   string        `json:"label"`
	Kind    Kind          `json:"kind"`
	SubCase SubCase       `json:"sub_case"`
	Passed  bool          `json:"passed"`
	Skipped bool          `json:"skipped,omitempty"`
	Elapsed time.Duration `json:"-"`
	Reason  string        `json:"reason,omitempty"`

	// ElapsedMS mirrors Elapsed for JSON output.
	ElapsedMS int64 `json:"elapsed_ms"`
}

func newOutcome(label string, sub SubCase, elapsed time.Duration, verr error) Outcome {
	o := Outcome{
		Label:     label,
		Kind:      sub.Kind(),
		SubCase:   sub,
		Passed:    verr == nil,
		Elapsed:   elapsed,
		ElapsedMS: elapsed.Milliseconds(),
	}
	if verr != nil {
		o.Reason = verr.Error()
	}
	return o
}

func skippedOutcome(label string, sub SubCase) Outcome {
	return Outcome{Label: label, Kind: sub.Kind(), SubCase: sub, Passed: true, Skipped: true}
}

// ScenarioExecutionError reports a transport or timeout failure from the
// store. It aborts the run.
type ScenarioExecutionError struct {
	Label   string
	SubCase SubCase
	Err     error
}

func (e *ScenarioExecutionError) Error() string {
	return fmt.Sprintf("scenario %q sub-case %s: %v", e.Label, e.SubCase, e.Err)
}

func (e *ScenarioExecutionError) Unwrap() error { return e.Err }

// DefinitionLoadError reports an unreadable or malformed test definition.
type DefinitionLoadError struct {
	Path string
	Err  error
}

func (e *DefinitionLoadError) Error() string {
	return fmt.Sprintf("load test definition %s: %v", e.Path, e.Err)
}

func (e *DefinitionLoadError) Unwrap() error { return e.Err }
