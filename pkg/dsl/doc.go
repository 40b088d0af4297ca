/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing statelens machines.

It allows developers to define hierarchical state machines using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. This is particularly useful for unit testing,
embedding a machine in a host program, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New("light").Context("count", 0)

	b.State("green").On("TIMER", "yellow")
	b.State("yellow").On("TIMER", "red")

	red := b.State("red").On("TIMER", "green")
	red.State("walk").On("COUNTDOWN", "wait")
	red.State("wait")

	machine, err := b.Build()

Every call to Build produces a fresh, independent machine, so a Builder can also be used
as a ports.MachineLoader through Loader.
*/
package dsl
