// Package memory provides in-memory implementations of the driven storage
// ports. They back the "memory" chat log backend and service tests.
package memory
