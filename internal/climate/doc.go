// Package climate holds the HVAC decision model: the context the engine
// owns, the policy that turns readings into a mode, manual overrides, the
// defrost duty cycle, and the bounded provenance and latency windows.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                    engine (single consumer)                  │
//	│  trigger ─► clone context ─► Evaluator ─► commit ─► dispatch │
//	└───────────────────────────────┬──────────────────────────────┘
//	                                │
//	            ┌───────────────────┴───────────────────┐
//	            │                                       │
//	      graph.Pipeline                      statechart.Chart
//	            │                                       │
//	            └─────────────── Components ────────────┘
//	               OverrideManager · Policy · DefrostScheduler
//
// Both execution strategies are built from the same Components and must
// agree on every decision. The order within a pass is fixed: drop an expired
// override, short-circuit when the system is off, honour a live override,
// otherwise ask the policy; when the result is heating, run the defrost
// check.
//
// Everything here is free of I/O. Time enters through the now argument so
// tests can drive the model with a fixed clock.
package climate
