// Package observability turns engine lifecycle hooks into Prometheus metrics
// and structured logs, and wraps event handling in OpenTelemetry spans.
package observability
