/*
Package history records which nodes were active when each committed event fired.

A node is recorded against an event when the configuration preceding the transition
matched the node's path. Edges whose source was recorded with the edge's event are the
ones eligible to have been taken, which is what "traversed" highlighting shows.
*/
package history
