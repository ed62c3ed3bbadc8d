// Package telemetry provides the OpenTelemetry integration for the SDK's
// public operations. Telemetry is disabled by default; enabling it wraps
// each operation in a span carrying the model, provider and usage
// attributes.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies the SDK tracer.
const TracerName = "go-llm"

// Settings configures telemetry for one operation.
type Settings struct {
	// IsEnabled turns spans on. Defaults to false.
	IsEnabled bool

	// RecordInputs is not read by the SDK; spans never carry prompt text,
	// whatever its value.
	RecordInputs bool

	// FunctionID groups telemetry by caller-defined operation name.
	FunctionID string

	// Metadata adds custom span attributes under the
	// "llm.telemetry.metadata." prefix.
	Metadata map[string]attribute.Value

	// Tracer overrides the global tracer.
	Tracer trace.Tracer
}

// TracerOrNoop returns the tracer to use: noop when disabled, the custom tracer
// when set, the global one otherwise.
func (s *Settings) TracerOrNoop() trace.Tracer {
	if s == nil || !s.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer(TracerName)
}
