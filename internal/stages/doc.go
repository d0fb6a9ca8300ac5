// Package stages holds the pipeline stage scorers: independent, pure
// computation units that read the shared triage context and publish one
// typed payload each. Clinical weights and lookup tables live here; the
// matching primitives they score with live in textmatch, and the fallback
// lookup chain in knowledge.
package stages
