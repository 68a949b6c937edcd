// Package otel publishes engine metrics through OpenTelemetry observable
// instruments registered on a caller-supplied meter.
package otel
