// Package api provides the Request Client for the shop REST API.
//
// Every call is a single request with no retry:
//   - Requests carry a JSON content type and the anti-forgery token
//   - Endpoints are relative to the base path (default /api)
//   - Non-2xx responses become an *APIError with a human-readable message
package api
