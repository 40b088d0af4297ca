/*
Package statelens is an interactive engine for hierarchical state machines (statecharts).

It loads a machine definition, runs it with run-to-completion semantics and keeps, next to the
live configuration, everything a visual explorer needs: which nodes and edges were traversed,
where a hypothetical event would lead (preview) and which node the user is looking at (selection).

# Concept

A definition compiles into an immutable Machine. An interpreter steps it one event at a time and
produces a new Configuration per step; the previous one is attached as its history. A Session ties
the interpreter to a history tracker, a preview engine and a selection controller and publishes a
View after every observable change. Presentation layers (the REPL, the Mermaid exporter, the HTTP
and MCP adapters) only ever read Views.

# Key Features

  - Compound, parallel and history (shallow and deep) states.
  - Guards as registered functions or inline conditions such as "count >= 3".
  - Built-in assign, increment and log actions; anything else is dispatched to the host.
  - Side-effect free previews computed by the same transition planner as real steps.
  - Edge-level traversal history with selectable recording policies.

# Usage

	engine := statelens.New()
	sess, err := engine.NewSession(ctx, definition)
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := sess.Send(ctx, domain.NewEvent("TIMER"))

Definitions are YAML or JSON:

	id: light
	initial: green
	states:
	  green:
	    on:
	      TIMER: yellow
	  yellow:
	    on:
	      TIMER: red
	  red:
	    on:
	      TIMER: green
*/
package statelens
