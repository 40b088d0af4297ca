// Package graph derives the static transition graph of a machine for rendering.
//
// The result depends on the machine model alone; runtime overlays (active, previewed,
// traversed) are computed by the session from configurations and history records.
package graph
