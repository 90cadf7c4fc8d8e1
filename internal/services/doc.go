// Package services holds cross-cutting support for external collaborators:
// the shared error taxonomy, the bounded retry policy, and context annotation
// helpers used by structured logging.
package services
