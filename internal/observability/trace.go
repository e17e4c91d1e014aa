package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "finitefield.org/catalog-web"

// Tracer returns the named tracer from the global provider. Without an SDK
// registered this is a no-op tracer.
func Tracer(component string) trace.Tracer {
	name := instrumentationName
	if component != "" {
		name = name + "/" + component
	}
	return otel.Tracer(name)
}
