// Package logger wraps zap to give every component a context-scoped,
// structured logger:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled convenience functions (Infof, ErrorKV, etc.).
//
// Services receive a context and extract the logger from it, so request and
// component names propagate through the whole call chain.
package logger
