package connection

import (
	"fmt"
	"net/url"
	"strings"
)

// PathPrefix is prepended to every endpoint topic.
const PathPrefix = "/ws/"

// Endpoint is a resolved channel address. Immutable once constructed.
type Endpoint struct {
	secure bool
	host   string
	topic  string
}

// NewEndpoint resolves topic against the origin the client is served from.
// The origin's scheme decides between ws and wss.
func NewEndpoint(origin, topic string) (Endpoint, error) {
	topic = strings.Trim(topic, "/")
	if topic == "" {
		return Endpoint{}, fmt.Errorf("%w: empty topic", ErrInvalidEndpoint)
	}

	u, err := url.Parse(origin)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: origin %q has no host", ErrInvalidEndpoint, origin)
	}

	var secure bool
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		secure = true
	case "http", "ws":
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	return Endpoint{secure: secure, host: u.Host, topic: topic}, nil
}

// Topic returns the logical topic name.
func (e Endpoint) Topic() string {
	return e.topic
}

// URL returns the full WebSocket address, e.g. wss://host/ws/stock/.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.secure {
		scheme = "wss"
	}
	return scheme + "://" + e.host + PathPrefix + e.topic + "/"
}

// Origin returns the HTTP origin matching the endpoint, e.g. https://host.
func (e Endpoint) Origin() string {
	scheme := "http"
	if e.secure {
		scheme = "https"
	}
	return scheme + "://" + e.host
}
