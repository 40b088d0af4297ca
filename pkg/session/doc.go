/*
Package session implements the session controller and multi-session management.

A Session owns one machine at a time together with its interpreter, history tracker,
selection and graph. It serializes every operation, replaces the machine atomically
on reload, and publishes a View (the visualization state) to its subscribers.

A Manager keeps many independent sessions keyed by ID and provides per-session locks
for composite operations issued by transports such as HTTP or MCP.
*/
package session
