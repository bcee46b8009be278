package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/keyfilter"
	"github.com/roach88/mrverify/internal/mapred"
	"github.com/roach88/mrverify/internal/oracle"
)

// DefaultFullBucketTimeout bounds sub-cases that scan the whole bucket.
const DefaultFullBucketTimeout = 10 * time.Minute

// linkMarker selects the reduced battery when it appears in a label.
const linkMarker = "link"

var (
	linkBattery = []SubCase{SubEntries, SubBucket, SubFilter}
	fullBattery = []SubCase{
		SubEntries, SubBucket, SubFilter, SubMissing, SubMissingTwice,
		SubIndexBucketRange, SubIndexKeyRange, SubIndexBinEq, SubIndexIntEq, SubIndexIntRange,
	}
)

// Battery returns the sub-cases to run for a scenario label. Link-phase jobs
// never surface not-found markers, so labels containing "link" in any case
// skip the missing and index sub-cases.
func Battery(label string) []SubCase {
	if containsFolded(label, linkMarker) {
		return append([]SubCase(nil), linkBattery...)
	}
	return append([]SubCase(nil), fullBattery...)
}

func containsFolded(s, sub string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(sub))
}

// Clock reports the current time. Tests inject a deterministic clock.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Runner executes a catalog against a store.
//
// Scenarios and their sub-cases run strictly in order on the calling
// goroutine. A Runner is not safe for concurrent use.
type Runner struct {
	Client   client.Client
	Oracle   *oracle.Oracle
	Clock    Clock
	Reporter Reporter
	Logger   *slog.Logger

	// FullBucketTimeout bounds the bucket and index:bucket_range sub-cases.
	// Zero selects DefaultFullBucketTimeout.
	FullBucketTimeout time.Duration
}

func (r *Runner) clock() Clock {
	if r.Clock == nil {
		return wallClock{}
	}
	return r.Clock
}

func (r *Runner) reporter() Reporter {
	if r.Reporter == nil {
		return NopReporter{}
	}
	return r.Reporter
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func (r *Runner) fullBucketTimeout() time.Duration {
	if r.FullBucketTimeout <= 0 {
		return DefaultFullBucketTimeout
	}
	return r.FullBucketTimeout
}

// Run executes every scenario of cat and returns the folded report. It does
// not stop on verification failures. A store error aborts the run; the
// returned report then covers the sub-cases completed so far and the error
// is a *ScenarioExecutionError.
func (r *Runner) Run(ctx context.Context, cat *Catalog) (*RunReport, error) {
	if r.Client == nil || r.Oracle == nil {
		return nil, fmt.Errorf("harness: runner requires a client and an oracle")
	}
	rep := r.reporter()
	r.logger().Info("running catalog",
		"scenarios", len(cat.Scenarios),
		"bucket", r.Oracle.BucketName(),
		"keycount", r.Oracle.KeyCount(),
	)
	filter := cat.Filter
	if filter == nil {
		filter = oracle.DefaultFilter
	}

	var all []Outcome
	for _, s := range cat.Scenarios {
		rep.ScenarioStart(s.Label)
		outcomes, err := r.runScenario(ctx, s, filter)
		all = append(all, outcomes...)
		if err != nil {
			report := Aggregate(all)
			rep.Summary(report)
			return report, err
		}
		rep.ScenarioEnd(Aggregate(outcomes).scenario(s.Label))
	}

	report := Aggregate(all)
	rep.Summary(report)
	return report, nil
}

func (rr *RunReport) scenario(label string) ScenarioReport {
	for _, s := range rr.Scenarios {
		if s.Label == label {
			return s
		}
	}
	return ScenarioReport{Label: label}
}

func (r *Runner) runScenario(ctx context.Context, s Scenario, filter keyfilter.Predicate) ([]Outcome, error) {
	battery := Battery(s.Label)
	log := r.logger().With("scenario", s.Label)
	if s.Job.HasLinkPhase() && !containsFolded(s.Label, linkMarker) {
		log.Warn("job follows links but its label does not select the link battery")
	}

	indexes := false
	for _, sub := range battery {
		if sub.IsIndex() {
			indexes = client.SupportsIndexes(ctx, r.Client, r.Oracle.BucketName(), log)
			break
		}
	}

	outcomes := make([]Outcome, 0, len(battery))
	for _, sub := range battery {
		if sub.IsIndex() && !indexes {
			o := skippedOutcome(s.Label, sub)
			r.reporter().SubCase(o)
			outcomes = append(outcomes, o)
			continue
		}

		in, exp, err := r.prepare(sub, filter)
		if err != nil {
			return outcomes, &ScenarioExecutionError{Label: s.Label, SubCase: sub, Err: err}
		}

		res, elapsed, err := r.execute(ctx, sub, in, s.Job)
		if err != nil {
			log.Error("job failed", "sub_case", sub, "error", err)
			return outcomes, &ScenarioExecutionError{Label: s.Label, SubCase: sub, Err: err}
		}

		verr := s.Verifier.Verify(sub.Kind(), res, exp)
		if verr != nil {
			log.Debug("verification failed", "sub_case", sub, "reason", verr)
		}
		o := newOutcome(s.Label, sub, elapsed, verr)
		r.reporter().SubCase(o)
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// execute times one RunJob call, bounding full-bucket sub-cases.
func (r *Runner) execute(ctx context.Context, sub SubCase, in mapred.Input, job mapred.Job) (*mapred.Result, time.Duration, error) {
	if sub.FullBucket() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fullBucketTimeout())
		defer cancel()
	}
	clk := r.clock()
	start := clk.Now()
	res, err := r.Client.RunJob(ctx, in, job)
	end := clk.Now()
	if err != nil {
		return nil, 0, err
	}
	return res, end.Sub(start), nil
}

// prepare builds the job input and the expected answer for sub.
func (r *Runner) prepare(sub SubCase, filter keyfilter.Predicate) (mapred.Input, oracle.Expectation, error) {
	o := r.Oracle
	switch sub {
	case SubEntries:
		sample := o.Entries()
		return mapred.KeyInputs{Keys: sample}, oracle.EntriesExpectation(sample), nil
	case SubBucket:
		return mapred.BucketInput{Bucket: o.BucketName()}, o.Bucket(), nil
	case SubFilter:
		exp, err := o.Filter(filter)
		if err != nil {
			return nil, oracle.Expectation{}, err
		}
		return mapred.FilterInput{Bucket: o.BucketName(), Filter: filter}, exp, nil
	case SubMissing, SubMissingTwice:
		refs := 1
		if sub == SubMissingTwice {
			refs = 2
		}
		keys, exp := o.Missing(refs)
		return mapred.KeyInputs{Keys: keys}, exp, nil
	}
	if sub.IsIndex() {
		q, exp, err := o.Index(oracle.IndexCase(sub[len(indexPrefix):]))
		if err != nil {
			return nil, oracle.Expectation{}, err
		}
		return q, exp, nil
	}
	return nil, oracle.Expectation{}, fmt.Errorf("unknown sub-case %q", sub)
}
