package util

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultTracerName = "ecommerce-service"

var tracer trace.Tracer

// InitTracer initializes OpenTelemetry tracing with Jaeger. sampleRatio is the
// fraction of new root traces recorded; children follow their parent.
func InitTracer(serviceName, env, jaegerEndpoint string, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(serviceName)

	GetLogger().Info("Tracer initialized",
		zap.String("service", serviceName),
		zap.String("endpoint", jaegerEndpoint),
		zap.Float64("sample_ratio", sampleRatio))
	return tp, nil
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	if tracer == nil {
		tracer = otel.Tracer(defaultTracerName)
	}
	return tracer
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
