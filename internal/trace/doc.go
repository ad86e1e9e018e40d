// Package trace records hierarchical timing spans for the transpiler
// pipeline. Spans nest as driver > stage > function > node; the tracer
// level decides how deep recording goes. Tracers travel through
// context.Context so pipeline stages never take them as parameters.
//
// Two sinks exist: StreamTracer writes every event as it happens (text or
// NDJSON), RingTracer keeps the most recent events in memory for dumping
// after a failure.
package trace
