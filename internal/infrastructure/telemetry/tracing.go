package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of application spans
const TracerName = "neuroerp"

// Span attribute keys shared by the aggregate services
const (
	AttrTenantID      = attribute.Key("tenant.id")
	AttrAggregateType = attribute.Key("aggregate.type")
	AttrAggregateID   = attribute.Key("aggregate.id")
	AttrBusinessKey   = attribute.Key("aggregate.business_key")
	AttrOperation     = attribute.Key("aggregate.operation")
	AttrVersion       = attribute.Key("aggregate.version")
	AttrStatus        = attribute.Key("aggregate.status")
)

// StartSpan starts an internal span on the global tracer provider.
//
//	ctx, span := telemetry.StartSpan(ctx, "Contract.renew", telemetry.AttrAggregateID.String(id.String()))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartAggregateSpan starts a span named "<aggregateType>.<operation>"
func StartAggregateSpan(ctx context.Context, aggregateType, operation string, tenantID uuid.UUID) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", aggregateType, operation),
		AttrAggregateType.String(aggregateType),
		AttrOperation.String(operation),
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordError marks the span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span as successful
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// TraceID returns the trace id of the span in ctx, or "" without one
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.TraceID().IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
