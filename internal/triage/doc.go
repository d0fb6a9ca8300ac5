// Package triage provides the business boundary for Acuity's clinical triage
// pipeline. It defines the Service (dedup, lifecycle, async dispatch through
// a worker pool), the Pipeline (ordered stage execution with graceful
// degradation), the per-run Context stages publish into, the Store interface
// (persistence), and the domain models every stage produces.
package triage
