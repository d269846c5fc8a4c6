// Package domain defines the core domain models for local-state-sync.
//
// Domain models are pure value objects and errors without any IO
// dependencies or framework coupling. The structured error taxonomy
// distinguishes fatal configuration errors (propagated to the caller)
// from record-level read errors (absorbed by the sync engine).
package domain
