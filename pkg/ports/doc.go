/*
Package ports defines the driven ports (interfaces) for the statelens engine.

These interfaces decouple the core from how machine definitions are authored and
where they come from, and from how opaque actions are carried out by the host.

# Key Interfaces

  - MachineLoader: turns a definition payload into an immutable domain.Machine.
  - DefinitionSource: reads the raw definition (e.g. a file on disk).
  - Watchable: notifies when a DefinitionSource changed, for hot reload.
  - ActionDispatcher: executes non built-in actions when a step is committed.
*/
package ports
