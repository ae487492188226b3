// Package state keeps per-chat conversation state in memory.
// It is domain-agnostic: callers choose the session type and serialize
// work on a chat with Lock. Sequencer keeps a chat's updates in arrival order.
package state
