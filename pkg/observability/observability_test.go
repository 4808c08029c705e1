package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetricsHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnEvent(ctx, domain.ClassifiedEvent{Kind: domain.EventSelection})
	hooks.OnTransition(ctx, &domain.TransitionEvent{Outcome: domain.OutcomeAdvanced, ToNode: "income_prompt", Duration: time.Millisecond})
	hooks.OnCommit(ctx, &domain.CommitEvent{Record: domain.CommittedRecord{Collection: "transactions"}})
	hooks.OnError(ctx, domain.ClassifiedEvent{}, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("selection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("advanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("income_prompt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Records.WithLabelValues("transactions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors))
}

func TestChain(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnEvent: func(context.Context, domain.ClassifiedEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{
		OnEvent:  func(context.Context, domain.ClassifiedEvent) { order = append(order, "b") },
		OnCommit: func(context.Context, *domain.CommitEvent) { order = append(order, "commit") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	h.OnEvent(context.Background(), domain.ClassifiedEvent{})
	h.OnCommit(context.Background(), &domain.CommitEvent{})
	assert.Nil(t, h.OnError)
	assert.Equal(t, []string{"a", "b", "commit"}, order)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(slog.New(slog.NewJSONHandler(&buf, nil)))
	hooks.OnTransition(context.Background(), &domain.TransitionEvent{UserID: "u1", ToNode: "default", Outcome: domain.OutcomeCompleted})
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	assert.Contains(t, buf.String(), `"outcome":"completed"`)
}

func TestTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := observability.InitWithExporter("botengine-test", "dev", exporter)
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := observability.StartSpan(context.Background(), "HandleEvent", attribute.String("user_id", "u1"))
	observability.EndSpan(span, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HandleEvent", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
