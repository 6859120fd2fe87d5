// Package relay republishes dispatched notifications onto Redis pub/sub so
// other processes can consume them without their own channel connection.
package relay
