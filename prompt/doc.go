// Package prompt builds the answer prompt and calls the generator.
//
// Templates are versioned and held in an immutable Registry; the active
// version is chosen once at construction. The Assembler renders a template
// with the retrieved context, the recent conversation and the question,
// optionally trimming to a token budget. The Synthesizer runs the
// assembled prompt through an ai.Generator.
//
// DetectInjection screens questions and history for attempts to override
// the system instructions.
package prompt
