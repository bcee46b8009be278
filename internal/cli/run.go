package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/fixture"
	"github.com/roach88/mrverify/internal/harness"
	"github.com/roach88/mrverify/internal/oracle"
)

func runVerify(cmd *cobra.Command, opts *RootOptions) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateSetup(opts); err != nil {
		return fail(formatter, WrapExitError(ExitFatal, ErrCodeSetup, "invalid setup", err))
	}
	if !opts.Populate && !opts.RunJobs {
		logger.Info("nothing to do: pass --populate and/or --runjobs")
		return nil
	}

	nodeRef := resolveNode(opts.Node, opts.Path)
	logger.Info("connecting", "node", nodeRef)
	c, err := client.Connect(ctx, nodeRef)
	if err != nil {
		return fail(formatter, WrapExitError(ExitFatal, ErrCodeSetup, "cannot connect",
			&SetupError{Flag: "node", Err: err}))
	}
	attachLogger(c, logger)
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	if opts.Populate {
		p := fixture.New(c, opts.Bucket, logger)
		if err := p.Setup(ctx, opts.BodySize.Bytes(), opts.KeyCount); err != nil {
			return fail(formatter, WrapExitError(ExitFatal, ErrCodeFixture, "populate failed", err))
		}
	}
	if !opts.RunJobs {
		return nil
	}

	cat, err := harness.LoadCatalog(opts.TestDef)
	if err != nil {
		return fail(formatter, WrapExitError(ExitFatal, ErrCodeDefinition, "cannot load test definition", err))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID, err := uuid.NewV7()
	if err != nil {
		return fail(formatter, WrapExitError(ExitFatal, ErrCodeExecution, "cannot generate run id", err))
	}
	logger.Info("running test definition",
		"run_id", runID.String(),
		"testdef", opts.TestDef,
		"scenarios", len(cat.Scenarios),
		"keycount", opts.KeyCount,
		"seed", seed,
	)

	var reporter harness.Reporter = harness.NopReporter{}
	if opts.Format == "text" {
		reporter = harness.NewTextReporter(cmd.OutOrStdout())
	}
	runner := &harness.Runner{
		Client:            c,
		Oracle:            oracle.New(opts.KeyCount, opts.Bucket, rand.New(rand.NewSource(seed))),
		Clock:             opts.Clock,
		Reporter:          reporter,
		Logger:            logger,
		FullBucketTimeout: opts.FullBucketTimeout,
	}

	report, runErr := runner.Run(ctx, cat)
	if report != nil {
		report.RunID = runID.String()
		if opts.Report != "" {
			if err := writeReport(opts.Report, report); err != nil {
				return fail(formatter, WrapExitError(ExitFatal, ErrCodeReport, "cannot write report", err))
			}
			logger.Info("report written", "path", opts.Report)
		}
	}
	if runErr != nil {
		return fail(formatter, WrapExitError(ExitFatal, ErrCodeExecution, "job execution failed", runErr))
	}

	if opts.Format == "json" {
		if err := formatter.SuccessWithTrace(report, report.RunID); err != nil {
			return err
		}
	}
	if report.Failed > 0 {
		return NewExitError(FailureExitCode(report.Failed), ErrCodeFailures,
			fmt.Sprintf("%d of %d checks failed", report.Failed, report.Total))
	}
	return nil
}

// validateSetup checks flag values cobra cannot check by type alone.
func validateSetup(opts *RootOptions) error {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return &SetupError{Flag: "path", Err: err}
	}
	if !info.IsDir() {
		return &SetupError{Flag: "path", Err: fmt.Errorf("%s is not a directory", opts.Path)}
	}
	if opts.KeyCount < 0 {
		return &SetupError{Flag: "keycount", Err: fmt.Errorf("must not be negative, got %d", opts.KeyCount)}
	}
	if _, _, ok := strings.Cut(opts.Node, ":"); !ok {
		return &SetupError{Flag: "node", Err: fmt.Errorf("expected scheme:address, got %q", opts.Node)}
	}
	return nil
}

// loggerSetter is implemented by stores that log capability warnings.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func attachLogger(c client.Client, logger *slog.Logger) {
	if ls, ok := c.(loggerSetter); ok {
		ls.SetLogger(logger)
	}
}

// resolveNode joins a relative node address onto the store directory.
func resolveNode(node, dir string) string {
	scheme, addr, _ := strings.Cut(node, ":")
	if addr == "" || filepath.IsAbs(addr) {
		return node
	}
	return scheme + ":" + filepath.Join(dir, addr)
}

func writeReport(path string, report *harness.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
}

// fail prints err through the formatter and returns it for the exit code.
func fail(f *OutputFormatter, err *ExitError) error {
	var details interface{}
	if err.Err != nil {
		details = err.Err.Error()
		var defErr *harness.DefinitionLoadError
		if errors.As(err.Err, &defErr) {
			details = map[string]string{"path": defErr.Path, "error": defErr.Err.Error()}
		}
	}
	message := err.Message
	if err.Err != nil && !f.Verbose && f.Format != "json" {
		message = err.Error()
	}
	_ = f.Error(err.ErrCode, message, details)
	return err
}
