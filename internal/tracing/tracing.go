// Package tracing wraps OpenTelemetry so callers can open spans around task
// transitions without importing the SDK. Until Init is called the global
// no-op provider is used and spans cost nothing.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "task-assigner"

var (
	providerOnce sync.Once
	provider     *sdktrace.TracerProvider
	providerErr  error

	output    io.Closer
	closeOnce sync.Once
)

// Init installs a stdout exporter writing to outputFile, or to stdout when
// outputFile is empty. The first call wins; later calls leave the file alone.
// The returned function flushes and stops the provider and closes the file.
func Init(serviceName, serviceVersion, outputFile string) (func(context.Context) error, error) {
	return install(serviceName, serviceVersion, func() (sdktrace.SpanExporter, io.Closer, error) {
		var (
			w io.Writer = os.Stdout
			c io.Closer
		)
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return nil, nil, err
			}
			w, c = f, f
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			if c != nil {
				_ = c.Close()
			}
			return nil, nil, err
		}
		return exporter, c, nil
	})
}

func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (func(context.Context) error, error) {
	return install(serviceName, serviceVersion, func() (sdktrace.SpanExporter, io.Closer, error) {
		return exporter, nil, nil
	})
}

func install(serviceName, serviceVersion string, build func() (sdktrace.SpanExporter, io.Closer, error)) (func(context.Context) error, error) {
	providerOnce.Do(func() {
		exporter, c, err := build()
		if err != nil {
			providerErr = err
			return
		}
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			if c != nil {
				_ = c.Close()
			}
			providerErr = err
			return
		}
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		output = c
		otel.SetTracerProvider(provider)
	})
	if providerErr != nil {
		return nil, providerErr
	}
	return shutdown, nil
}

func shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	closeOnce.Do(func() {
		if output != nil {
			if cerr := output.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

type Span struct {
	span trace.Span
}

func StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, *Span) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(kv...),
	)
	return ctx, &Span{span: span}
}

func (s *Span) SetAttribute(key, value string) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.String(key, value))
}

// EndSpan records err (or OK) and ends the span.
func EndSpan(s *Span, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
