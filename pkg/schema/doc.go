// Package schema describes the payload an event is expected to carry.
//
// A machine definition may declare one schema per event type:
//
//	events:
//	  ADD_ITEM:
//	    price: float
//	    sku: string
//	    tags: "[string]?"
//
// Field types are "string", "int", "float", "bool", "any" or a slice written as
// "[type]". A trailing "?" marks the field optional. Fields not named by the
// schema are accepted as-is.
//
// Events are checked before the interpreter resolves them, so a payload that
// does not match never reaches guards or actions.
package schema
