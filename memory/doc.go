// Package memory contains concrete ConversationStore implementations. The
// store interface resides in the core package; depend on
// core.ConversationStore in your code and select an implementation (like the
// in-memory store below, or store/postgres) at wiring time.
package memory
