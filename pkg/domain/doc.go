/*
Package domain contains the core domain models of the statelens engine.

It defines the immutable description of a hierarchical state machine (Machine, Node,
Transition, Action) and the runtime snapshot produced while interpreting it
(Configuration). This package is kept pure and free of I/O; loaders, renderers and
transports live in adapters.

# Key Entities

  - Machine: the compiled, immutable model. Owns the node tree and the lookup indexes.
  - Node: a state, identified by a unique ID and by its hierarchical Path.
  - Transition: a rule that moves the machine when an event is received.
  - Configuration: a snapshot of the active nodes, context and the actions that produced it.
  - Event: the input sent to the interpreter.
*/
package domain
