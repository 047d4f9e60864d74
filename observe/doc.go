// Package observe provides observability primitives for Shora client calls.
//
// It is a pure instrumentation library: no transport and no I/O beyond
// exporter setup. The client wires an Observer into its HTTP call path; the
// vault uses the Logger and Metrics directly.
package observe
