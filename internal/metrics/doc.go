// Package metrics exposes Prometheus counters for the SMART launch flow.
package metrics
