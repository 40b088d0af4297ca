/*
Package observability provides tools for monitoring the statelens engine.

It exposes Prometheus collectors for sessions, events, previews and reloads, and
lifecycle hooks that feed node-level counters from the interpreter.
*/
package observability
