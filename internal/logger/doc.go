// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder and a configurable sink,
//   - context helpers (ToContext/FromContext/WithName),
//   - level configuration and parsing utilities,
//   - leveled key-value helpers (DebugKV, InfoKV, WarnKV).
//
// The installer and the launcher accept a context and extract the logger from it.
// The launcher points the sink at stderr so the managed binary keeps stdout to itself.
package logger
