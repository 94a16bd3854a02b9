// Package graph implements the climate decision pass as a walk over a
// compiled node graph.
//
// The generic Builder and Graph types know nothing about climate: nodes do
// work on a shared run state and routers choose the next node. Compile
// rejects dangling edges, nodes without an exit and unreachable nodes, so a
// bad wiring fails at start-up rather than mid-pass.
//
// Pipeline wires the climate nodes on top. Every node name it visits is
// reported in Outcome.Path, and a failing node is named in the returned
// *climate.NodeError.
package graph
