// Package agent runs a single configured agent through its think/act/observe
// loop.
//
// The loop is a graph.Graph[State] with three nodes:
//
//	agent  -> invoke the model with the conversation and bound tool schemas
//	tools  -> execute every requested tool call concurrently
//	output -> take the last message content as the final output
//
// After agent the router goes to output when an error is set, to tools when
// the latest message requests tool calls, and to output otherwise. tools
// always returns to agent; output ends the run. A maximum number of model
// round trips bounds the loop.
//
// Faults are recorded on the State instead of being returned, so callers
// always receive the accumulated conversation alongside the error string.
package agent
