// Package statechart implements the climate decision pass as a
// hierarchical state chart.
//
// Composite states carry guards that pick the active child: root chooses
// between off and on, on between manual_override and automatic, and
// automatic asks the policy for idle, heating or cooling. Leaves carry the
// activity that fills in the outcome. The leaf the context was last in is
// derived from the committed state label, so the chart itself holds no
// state between passes.
package statechart
