// Package core provides the foundational domain types and interfaces used by
// agentstudio. It defines the core abstractions for:
//
//   - Conversation messages and model requested function calls
//   - Agent configurations and references (stored agents or templates)
//   - Workflow definitions (nodes, edges) and per-node results
//   - Repository interfaces for agents, workflows and conversation memory
//
// The package keeps persistence and execution out of scope, exposing small
// interfaces so stores and runners can be swapped independently.
package core
