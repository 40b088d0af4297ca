// Package loader reads machine definitions written in YAML (or JSON) and compiles them
// into domain machines.
//
// The format follows the familiar statechart object shape:
//
//	id: light
//	initial: green
//	context:
//	  count: 0
//	states:
//	  green:
//	    on:
//	      TIMER: yellow
//	  yellow:
//	    on:
//	      TIMER:
//	        target: red
//	        guard: count >= 2
//	        actions:
//	          - type: increment
//	            params: { count: 1 }
//	  red:
//	    initial: walk
//	    states:
//	      walk: { on: { COUNTDOWN: wait } }
//	      wait: {}
//	      hist: { type: history, history: deep }
//
// States and events keep the order in which they appear in the document.
// Guards are either names registered with WithGuard or small conditions
// (see ParseCondition). The loader never runs code from the definition.
package loader
