// Package telemetry wires OpenTelemetry tracing and Prometheus metrics for
// sourcemark.
//
// It centralises trace provider setup, offers span helpers that describe locator
// outcomes without exporting document text, and owns the Prometheus registry served
// on the metrics endpoint.
package telemetry
