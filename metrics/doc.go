// Package metrics exports pipeline activity as Prometheus metrics.
//
// A Collector is both a search.Monitor and a ragtime.Observer; pass it to
// ragtime.WithMonitor and ragtime.WithObserver and serve its registry.
package metrics
