package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mrverify/internal/harness"

	// Store Client schemes.
	_ "github.com/roach88/mrverify/internal/store/boltkv"
	_ "github.com/roach88/mrverify/internal/store/sqlitekv"
)

// RootOptions holds every flag of the mrverify command.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Node              string
	Path              string
	KeyCount          int
	BodySize          *sizeValue
	Populate          bool
	RunJobs           bool
	TestDef           string
	Bucket            string
	Seed              int64
	FullBucketTimeout time.Duration
	Report            string

	// Clock overrides sub-case timing (for testing).
	// If nil, wall-clock time is used.
	Clock harness.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// SetupError reports an unusable flag value. It is printed with usage.
type SetupError struct {
	Flag string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("--%s: %v", e.Flag, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// NewRootCommand creates the mrverify command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.BodySize = newSizeValue("1k")

	cmd := &cobra.Command{
		Use:   "mrverify",
		Short: "Verify map/reduce and secondary index results against ground truth",
		Long: `mrverify populates a bucket with a deterministic dataset and checks that
aggregation jobs run by the store return exactly the expected answers.

Every scenario in the test definition runs against a battery of inputs:
sampled keys, the full bucket, a key filter, missing keys and (on backends
with secondary indexes) five index queries. The exit code is the number of
failed checks.

Example:
  mrverify -n sqlite:store.db -p /tmp/mr --populate --runjobs
  mrverify -n bolt:store.db -p /tmp/mr -r -c 100 -t priv/tests.def --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	f := cmd.Flags()
	f.StringVarP(&opts.Node, "node", "n", "", "store node as scheme:address, e.g. sqlite:store.db (required)")
	f.StringVarP(&opts.Path, "path", "p", "", "working directory of the store; relative node addresses resolve here (required)")
	f.IntVarP(&opts.KeyCount, "keycount", "c", 1000, "number of records in the dataset")
	f.VarP(opts.BodySize, "bodysize", "s", "record body size, <n>k (1024 bytes) or <n>b")
	f.BoolVarP(&opts.Populate, "populate", "l", false, "clear and populate the dataset before running")
	f.BoolVarP(&opts.RunJobs, "runjobs", "r", false, "run the test definition")
	f.StringVarP(&opts.TestDef, "testdef", "t", "priv/tests.def", "test definition file (.def, .yaml, .json, .hujson, .cue)")
	f.StringVar(&opts.Bucket, "bucket", "mrbucket", "bucket holding the dataset")
	f.Int64Var(&opts.Seed, "seed", 0, "seed for the entries subsample (0 = time based)")
	f.DurationVar(&opts.FullBucketTimeout, "full-bucket-timeout", harness.DefaultFullBucketTimeout, "timeout for full-bucket jobs")
	f.StringVar(&opts.Report, "report", "", "write the JSON run report to this file")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the command with args and returns the process exit code.
// Flag and setup errors are printed with usage.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return ExitFatal
	}
	var setupErr *SetupError
	if errors.As(err, &setupErr) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return exitErr.Code
}
