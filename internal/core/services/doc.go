// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Shared state (the version registry and the corpus cache) is published
// copy-on-write: readers never lock and never see a half-applied change.
package services
