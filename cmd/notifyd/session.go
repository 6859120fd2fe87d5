package main

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/ibrahzuma/umoja-hardware-system/internal/auth"
	"github.com/ibrahzuma/umoja-hardware-system/internal/config"
	"github.com/ibrahzuma/umoja-hardware-system/internal/connection"
)

// session carries the credentials shared by the channel and the Request Client.
type session struct {
	endpoint connection.Endpoint
	jar      http.CookieJar
	tokens   auth.TokenSource
}

// newSession resolves the endpoint and seeds a cookie jar with the configured
// session and anti-forgery cookies. A token file takes precedence over the jar.
func newSession(cfg *config.Config) (*session, error) {
	endpoint, err := connection.NewEndpoint(cfg.Server.Origin, cfg.Server.Topic)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	originURL, err := url.Parse(endpoint.Origin())
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}

	var cookies []*http.Cookie
	if cfg.API.SessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: "sessionid", Value: cfg.API.SessionID, Path: "/"})
	}
	if cfg.API.CSRFToken != "" {
		cookies = append(cookies, &http.Cookie{Name: cfg.API.CSRFCookie, Value: cfg.API.CSRFToken, Path: "/"})
	}
	jar.SetCookies(originURL, cookies)

	var tokens auth.TokenSource
	if cfg.API.CSRFTokenFile != "" {
		tokens, err = auth.LoadToken(cfg.API.CSRFTokenFile)
	} else {
		tokens, err = auth.FromCookieJar(jar, endpoint.Origin(), cfg.API.CSRFCookie)
	}
	if err != nil {
		return nil, err
	}

	return &session{endpoint: endpoint, jar: jar, tokens: tokens}, nil
}
