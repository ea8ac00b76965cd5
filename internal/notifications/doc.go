// Package notifications pushes pipeline outcome events to an ntfy topic so a
// phone or review UI can track the ingest queue without polling. When no
// topic is configured the service degrades to a noop.
package notifications
