package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewDecisionContext_StampsRunID(t *testing.T) {
	a := NewDecisionContext()
	b := NewDecisionContext()
	if a.RunID == "" {
		t.Fatal("RunID is empty")
	}
	if a.RunID == b.RunID {
		t.Error("two decision contexts produced the same RunID")
	}
}

func TestRecorder_FullPipeline(t *testing.T) {
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := noop.NewMeterProvider().Meter("test")

	rec, err := NewRecorder(tracer, meter)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	ctx, span := rec.StartDecision(context.Background(), NewDecisionContext(), "exp1")
	rec.RecordAudienceResult(ctx, span, "exp1", true)
	rec.RecordBucketResult(ctx, span, "exp1", 42, "control", 0.001)
	span.End()
}

func TestNewProviders_NoEndpointBuildsLocalOnlyProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), ProviderConfig{})
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	tracer := providers.Tracer.Tracer("test")
	_, span := tracer.Start(context.Background(), "probe")
	span.End()

	meter := providers.Meter.Meter("test")
	if _, err := meter.Int64Counter("probe.counter"); err != nil {
		t.Errorf("Int64Counter: %v", err)
	}
}

func TestNewProviders_DefaultsServiceName(t *testing.T) {
	if got := serviceName(ProviderConfig{}); got != "decisionengine" {
		t.Errorf("serviceName = %q, want decisionengine", got)
	}
	if got := serviceName(ProviderConfig{ServiceName: "custom"}); got != "custom" {
		t.Errorf("serviceName = %q, want custom", got)
	}
}
