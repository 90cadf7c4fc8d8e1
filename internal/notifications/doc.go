// Package notifications delivers run lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Individual event
// kinds can be toggled in configuration so the pipeline never needs to know
// which pushes are wanted.
package notifications
