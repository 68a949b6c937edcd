// Package prometheus exposes engine metrics as a Prometheus collector.
//
// The collector reads [mateauth.Engine.MetricsSnapshot] on every scrape; it
// keeps no state of its own.
package prometheus
