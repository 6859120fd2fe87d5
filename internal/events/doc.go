// Package events implements the Event Registry.
//
// The registry maps an event type name (the "type" field of an inbound
// frame) to an ordered list of handlers:
//   - Handlers run in registration order
//   - The same handler may be registered more than once and fires once per registration
//   - A panicking handler is recovered and logged; the remaining handlers still run
//   - Registrations outlive any single connection
package events
