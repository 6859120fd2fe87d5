// Package connection implements the Connection Manager.
//
// The Connection Manager:
//   - Owns at most one live WebSocket session per endpoint
//   - Decodes inbound frames and dispatches them to the Event Registry
//   - Reconnects after every close, 5s fixed delay and unbounded by default
//   - Ignores frames and close events from superseded sessions
package connection
