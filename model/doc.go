// Package model is the boundary between agents and LLM providers.
//
// A Model turns a Request (messages, tool definitions, sampling settings)
// into one assistant Message. Tool calls are normalized to core.FunctionCall
// regardless of vendor. The openai and anthropic subpackages adapt the
// official SDKs; provider selects one from configuration. MockModel replays
// scripted replies in tests.
package model
