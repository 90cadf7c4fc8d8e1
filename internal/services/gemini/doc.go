// Package gemini adapts the Gemini generation service to the pipeline's
// per-stage operations. Every method validates the model's output at this
// boundary and returns a local cost usage estimate alongside the result, so
// malformed data never crosses into the state machine and failed calls are
// never charged.
package gemini
