package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxgate/decisionengine/audience"
	"github.com/fluxgate/decisionengine/bucketing"
	"github.com/fluxgate/decisionengine/logging"
	"github.com/fluxgate/decisionengine/project"
	"github.com/fluxgate/decisionengine/telemetry"
)

// NewEvaluateCmd creates the "evaluate" subcommand: runs the full
// Audience Resolver -> Bucketer pipeline for one user against one
// experiment and prints the outcome.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <config.json|yaml>",
		Short: "Evaluate a user against an experiment",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}

	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().String("attrs", "{}", "User attributes, as a JSON object")
	cmd.Flags().String("experiment", "", "Experiment key (required)")
	cmd.Flags().Bool("verbose", false, "Stream structured log lines to stderr")
	cmd.Flags().String("otlp-endpoint", "", "Export a decision span over OTLP/HTTP to this collector (host:port)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("experiment")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	userID, _ := cmd.Flags().GetString("user")
	attrsJSON, _ := cmd.Flags().GetString("attrs")
	experimentKey, _ := cmd.Flags().GetString("experiment")
	verbose, _ := cmd.Flags().GetBool("verbose")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(filePath) // #nosec G304 -- path from caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return fmt.Errorf("reading file: %w", err)
	}

	cfg, err := project.Decode(data, filePath)
	if err != nil {
		return exitError(exitValidation, "invalid project config: %v", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return exitError(exitInputParse, "invalid --attrs JSON: %v", err)
	}

	exp, found := cfg.ExperimentByKey(experimentKey)
	if !found {
		return exitError(exitNotFound, "unknown experiment key: %s", experimentKey)
	}

	logWriter := io.Writer(os.Stderr)
	if !verbose {
		logWriter = io.Discard
	}
	coreLogger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug})))

	recorder, spanCtx, endSpan, shutdown, err := setupTelemetry(ctx, otlpEndpoint, experimentKey)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer shutdown()
	ctx = spanCtx

	start := time.Now()
	admitted := audience.Resolve(cfg, exp, attrs, coreLogger)
	fmt.Fprintf(out, "audience: %v\n", admitted)
	recorder.RecordAudienceResult(ctx, endSpan, experimentKey, admitted)
	if !admitted {
		fmt.Fprintln(out, "variation: none (audience rejected)")
		endSpan.End()
		return nil
	}

	variation, bucketValue, err := bucketing.Bucket(cfg, exp, userID, coreLogger)
	if err != nil {
		endSpan.End()
		return fmt.Errorf("bucketing: %w", err)
	}
	variationKey := "none"
	if variation != nil {
		variationKey = variation.Key
	}
	recorder.RecordBucketResult(ctx, endSpan, experimentKey, bucketValue, variationKey, time.Since(start).Seconds())
	endSpan.End()

	if variation == nil {
		fmt.Fprintln(out, "variation: none")
		return nil
	}
	fmt.Fprintf(out, "variation: %s (id=%s)\n", variation.Key, variation.ID)
	return nil
}

// setupTelemetry builds a Recorder and opens the span for this one
// decision. When otlpEndpoint is empty, tracing and metrics stay local
// (no exporter is attached, so nothing leaves the process); shutdown is
// always safe to defer unconditionally.
func setupTelemetry(ctx context.Context, otlpEndpoint, experimentKey string) (recorder *telemetry.Recorder, spanCtx context.Context, span trace.Span, shutdown func(), err error) {
	noop := func() {}

	providers, err := telemetry.NewProviders(ctx, telemetry.ProviderConfig{OTLPEndpoint: otlpEndpoint})
	if err != nil {
		return nil, nil, nil, noop, err
	}

	tracer := providers.Tracer.Tracer("flagengine/cli")
	meter := providers.Meter.Meter("flagengine/cli")
	recorder, err = telemetry.NewRecorder(tracer, meter)
	if err != nil {
		return nil, nil, nil, noop, err
	}

	dc := telemetry.NewDecisionContext()
	spanCtx, span = recorder.StartDecision(ctx, dc, experimentKey)

	shutdown = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}
	return recorder, spanCtx, span, shutdown, nil
}
