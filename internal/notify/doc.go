// Package notify contains the default consumers of the notification channel.
//
// Payloads pushed by the server are decoded into typed values and turned into
// toasts. How a toast is shown is up to the Renderer.
package notify
